// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
	"github.com/ochairo/pgbrew/internal/domain/interfaces/repositories"
	"github.com/ochairo/pgbrew/internal/domain/services"
)

// ErrConfigToolNotFound is returned when no resolution tier produced a path
var ErrConfigToolNotFound = errors.New("configuration tool not found")

// SourceFetcher downloads and unpacks a recipe's source archive
type SourceFetcher interface {
	FetchSource(ctx context.Context, def *entities.Recipe, version, outputDir string) (*entities.Artifact, error)
}

// Builder runs the external build system over an unpacked source tree
type Builder interface {
	Build(ctx context.Context, srcRoot string, build entities.RecipeBuild, env map[string]string) error
}

// Stager collects build outputs and installs them into the keg
type Stager interface {
	Collect(srcRoot string, def *entities.Recipe) (*entities.BuildArtifact, error)
	Stage(art *entities.BuildArtifact, keg entities.Keg, extension string) error
}

// LibraryInspector reports the object format of a built library
type LibraryInspector interface {
	Inspect(path string) (*entities.LibraryFormat, error)
}

// InstallerWriter generates the installer script against a configuration tool
type InstallerWriter interface {
	WriteInstaller(ctx context.Context, toolPath string, keg entities.Keg, build *entities.BuildArtifact, extension, name string) (string, error)
}

// Packager bottles a keg into a distributable archive
type Packager interface {
	PackageKeg(ctx context.Context, def *entities.Recipe, keg entities.Keg, platform, outputDir string) (*entities.Artifact, error)
}

// Checksummer writes checksum sidecars next to produced archives
type Checksummer interface {
	WriteSidecar(filePath string) (string, error)
}

// SelfTester smoke-tests an installed recipe against a throwaway database
type SelfTester interface {
	RunSelfTest(ctx context.Context, def *entities.Recipe, res entities.Resolution, workDir string) error
}

// VersionChecker looks up the newest upstream version of a recipe
type VersionChecker interface {
	LatestVersion(ctx context.Context, source string) (string, error)
}

// InstallGateways bundles the adapters the install workflow drives
type InstallGateways struct {
	Env         services.Environment
	FS          services.FileSystem
	Fetcher     SourceFetcher
	Builder     Builder
	Stager      Stager
	Inspector   LibraryInspector
	Installer   InstallerWriter
	Packager    Packager
	Checksummer Checksummer
	SelfTester  SelfTester
	Versions    VersionChecker
}

// InstallOrchestratorConfig holds configuration for the orchestrator
type InstallOrchestratorConfig struct {
	Cellar         string
	WorkDir        string
	OutputDir      string
	HomebrewPrefix string
}

// InstallOrchestrator coordinates resolve, build, stage and installer generation
type InstallOrchestrator struct {
	defRepo repositories.RecipeRepository
	gw      InstallGateways
	config  InstallOrchestratorConfig
	logger  interfaces.Logger
}

// NewInstallOrchestrator creates a new install orchestrator
func NewInstallOrchestrator(
	defRepo repositories.RecipeRepository,
	gw InstallGateways,
	config InstallOrchestratorConfig,
	logger interfaces.Logger,
) *InstallOrchestrator {
	if config.Cellar == "" {
		config.Cellar = "Cellar"
	}
	if config.WorkDir == "" {
		config.WorkDir = "work"
	}
	if config.OutputDir == "" {
		config.OutputDir = "dist"
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &InstallOrchestrator{defRepo: defRepo, gw: gw, config: config, logger: logger}
}

// InstallRequest selects what to install and how
type InstallRequest struct {
	Recipe    string
	Version   string // overrides the recipe version when set
	SourceDir string // prebuilt/unpacked source tree; skips the download
	Bottle    bool
	Platform  string
}

// InstallResult contains the result of an install operation
type InstallResult struct {
	Recipe            *entities.Recipe
	Resolution        entities.Resolution
	BuildDependencies []string
	Keg               entities.Keg
	Build             *entities.BuildArtifact
	Library           *entities.LibraryFormat
	InstallerPath     string
	Archive           *entities.Artifact
	ChecksumPath      string
	FetchDuration     time.Duration
	BuildDuration     time.Duration
	TotalDuration     time.Duration
	Success           bool
	Error             error
}

// Resolve picks the configuration tool for a recipe. It never probes the
// fallback path.
func (o *InstallOrchestrator) Resolve(def *entities.Recipe) (entities.Resolution, error) {
	candidates, err := services.CandidatesFor(def.Postgres, o.config.HomebrewPrefix)
	if err != nil {
		return entities.Resolution{}, fmt.Errorf("invalid candidate list: %w", err)
	}
	return services.ResolveConfigTool(services.ResolverConfig{
		Candidates:   candidates,
		Command:      def.Postgres.ConfigTool,
		SearchDirs:   def.Postgres.SearchDirs,
		FallbackPath: services.DefaultFallback(def.Postgres, o.config.HomebrewPrefix),
	}, o.gw.Env, o.gw.FS), nil
}

// ResolveRecipe loads a recipe and resolves its configuration tool
func (o *InstallOrchestrator) ResolveRecipe(ctx context.Context, name string) (*entities.Recipe, entities.Resolution, error) {
	def, err := o.defRepo.GetRecipe(ctx, name)
	if err != nil {
		return nil, entities.Resolution{}, fmt.Errorf("failed to load recipe: %w", err)
	}
	res, err := o.Resolve(def)
	return def, res, err
}

// BuildEnv returns the variables exported into the build subprocesses
func BuildEnv(def *entities.Recipe, res entities.Resolution) map[string]string {
	env := make(map[string]string, len(def.Build.Env)+1)
	for k, v := range def.Build.Env {
		env[k] = v
	}
	env["PG_CONFIG"] = res.Path
	return env
}

// Install executes the complete install workflow for a recipe. Any failing
// step aborts the run; partial state is left in place.
func (o *InstallOrchestrator) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	startTime := time.Now()
	result := &InstallResult{}

	// Step 1: Load recipe
	loaded, err := o.defRepo.GetRecipe(ctx, req.Recipe)
	if err != nil {
		result.Error = fmt.Errorf("failed to load recipe: %w", err)
		return result, result.Error
	}
	def := *loaded
	if req.Version != "" {
		def.Version = req.Version
	}
	result.Recipe = &def

	// Step 2: Resolve the configuration tool once for the whole run
	res, err := o.Resolve(&def)
	if err != nil {
		result.Error = err
		return result, result.Error
	}
	result.Resolution = res
	result.BuildDependencies = def.EffectiveBuildDependencies(res)
	if !res.Found {
		result.Error = fmt.Errorf("%w: %s", ErrConfigToolNotFound, def.Postgres.ConfigTool)
		return result, result.Error
	}
	o.logger.Info("Resolved configuration tool",
		interfaces.F("path", res.Path),
		interfaces.F("tier", res.Tier.String()),
		interfaces.F("formula", res.Formula(def.Postgres.DefaultFormula())))
	o.logger.Debug("Build dependencies", interfaces.F("deps", result.BuildDependencies))

	// Step 3: Source tree
	fetchStart := time.Now()
	srcRoot := req.SourceDir
	if srcRoot == "" {
		src, err := o.gw.Fetcher.FetchSource(ctx, &def, def.Version, filepath.Join(o.config.WorkDir, def.Name))
		if err != nil {
			result.Error = fmt.Errorf("failed to fetch source: %w", err)
			return result, result.Error
		}
		srcRoot = src.Path
	}
	result.FetchDuration = time.Since(fetchStart)

	// Step 4: Build
	buildStart := time.Now()
	if err := o.gw.Builder.Build(ctx, srcRoot, def.Build, BuildEnv(&def, res)); err != nil {
		result.Error = fmt.Errorf("build failed: %w", err)
		return result, result.Error
	}
	result.BuildDuration = time.Since(buildStart)

	// Step 5: Stage into the keg
	build, err := o.gw.Stager.Collect(srcRoot, &def)
	if err != nil {
		result.Error = fmt.Errorf("failed to collect build outputs: %w", err)
		return result, result.Error
	}
	result.Build = build
	result.Keg = entities.NewKeg(o.config.Cellar, def.Name, def.Version)
	if err := o.gw.Stager.Stage(build, result.Keg, def.Name); err != nil {
		result.Error = fmt.Errorf("failed to stage artifacts: %w", err)
		return result, result.Error
	}

	// Step 6: Inspect the library; a mismatch only warns
	if o.gw.Inspector != nil {
		format, err := o.gw.Inspector.Inspect(build.Library)
		switch {
		case err != nil:
			o.logger.Warn("Could not inspect library", interfaces.F("library", build.Library), interfaces.Err(err))
		case !format.Shared:
			o.logger.Warn("Library is not a shared object",
				interfaces.F("library", build.Library), interfaces.F("format", format.Format))
		}
		result.Library = format
	}

	// Step 7: Installer script
	installer, err := o.gw.Installer.WriteInstaller(ctx, res.Path, result.Keg, build, def.Name, def.Install.Installer)
	if err != nil {
		result.Error = fmt.Errorf("failed to generate installer: %w", err)
		return result, result.Error
	}
	result.InstallerPath = installer

	// Step 8: Optional bottle
	if req.Bottle {
		archive, err := o.gw.Packager.PackageKeg(ctx, &def, result.Keg, req.Platform, o.config.OutputDir)
		if err != nil {
			result.Error = fmt.Errorf("packaging failed: %w", err)
			return result, result.Error
		}
		result.Archive = archive

		sum, err := o.gw.Checksummer.WriteSidecar(archive.Path)
		if err != nil {
			result.Error = fmt.Errorf("checksum failed: %w", err)
			return result, result.Error
		}
		result.ChecksumPath = sum
	}

	result.Success = true
	result.TotalDuration = time.Since(startTime)
	return result, nil
}

// SelfTest resolves the recipe's configuration tool and runs its smoke test
func (o *InstallOrchestrator) SelfTest(ctx context.Context, name string) error {
	def, res, err := o.ResolveRecipe(ctx, name)
	if err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("%w: %s", ErrConfigToolNotFound, def.Postgres.ConfigTool)
	}
	workDir := filepath.Join(o.config.WorkDir, def.Name, "test")
	if err := o.gw.SelfTester.RunSelfTest(ctx, def, res, workDir); err != nil {
		return fmt.Errorf("self-test failed: %w", err)
	}
	return nil
}

// Caveats renders the post-install notes for a recipe
func (o *InstallOrchestrator) Caveats(ctx context.Context, name string) (string, error) {
	def, res, err := o.ResolveRecipe(ctx, name)
	if err != nil {
		return "", err
	}
	return services.RenderCaveats(def, res)
}

// OutdatedResult compares a recipe's pinned version with upstream
type OutdatedResult struct {
	Recipe   string
	Current  string
	Latest   string
	Outdated bool
}

// Outdated checks the recipe's livecheck source for a newer release
func (o *InstallOrchestrator) Outdated(ctx context.Context, name string) (*OutdatedResult, error) {
	def, err := o.defRepo.GetRecipe(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if def.Livecheck == "" {
		return nil, fmt.Errorf("recipe %s has no livecheck source", def.Name)
	}
	if o.gw.Versions == nil {
		return nil, errors.New("no version checker configured")
	}

	latest, err := o.gw.Versions.LatestVersion(ctx, def.Livecheck)
	if err != nil {
		return nil, fmt.Errorf("failed to check latest version: %w", err)
	}
	cmp, err := services.CompareVersions(def.Version, latest)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("Checked upstream version",
		interfaces.F("recipe", def.Name),
		interfaces.F("current", def.Version),
		interfaces.F("latest", latest))

	return &OutdatedResult{
		Recipe:   def.Name,
		Current:  def.Version,
		Latest:   latest,
		Outdated: cmp < 0,
	}, nil
}

// GetInstallSummary returns a human-readable summary of the install
func (r *InstallResult) GetInstallSummary() string {
	if !r.Success {
		return fmt.Sprintf("Install failed: %v", r.Error)
	}

	summary := fmt.Sprintf(`Install successful!
Package: %s %s
pg_config: %s (%s)
Keg: %s
Installer: %s
Fetch: %v
Build: %v
Total: %v`,
		r.Recipe.Name,
		r.Recipe.Version,
		r.Resolution.Path,
		r.Resolution.Tier,
		r.Keg.Prefix,
		r.InstallerPath,
		r.FetchDuration,
		r.BuildDuration,
		r.TotalDuration,
	)

	if r.Archive != nil {
		summary += fmt.Sprintf("\nBottle: %s\nChecksum: %s", r.Archive.Path, r.ChecksumPath)
	}
	return summary
}
