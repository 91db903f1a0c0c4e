// Package yaml provides YAML-based recipe parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"
	"regexp"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/services"
	"gopkg.in/yaml.v3"
)

var recipeNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// yamlRecipe represents the raw YAML structure
type yamlRecipe struct {
	Name              string       `yaml:"name"`
	Description       string       `yaml:"description"`
	Homepage          string       `yaml:"homepage"`
	Version           string       `yaml:"version"`
	License           string       `yaml:"license"`
	Source            yamlSource   `yaml:"source"`
	BuildDependencies []string     `yaml:"build_dependencies"`
	Postgres          yamlPostgres `yaml:"postgres"`
	Build             yamlBuild    `yaml:"build"`
	Install           yamlInstall  `yaml:"install"`
	Test              yamlTest     `yaml:"test"`
	Caveats           string       `yaml:"caveats"`
	Livecheck         string       `yaml:"livecheck"`
}

type yamlSource struct {
	URL string `yaml:"url"`
}

type yamlPostgres struct {
	Formula      string   `yaml:"formula"`
	Candidates   []string `yaml:"candidates"`
	Default      string   `yaml:"default"`
	ConfigTool   string   `yaml:"config_tool"`
	SearchDirs   []string `yaml:"search_dirs"`
	FallbackPath string   `yaml:"fallback_path"`
}

type yamlBuild struct {
	SourceDir string            `yaml:"source_dir"`
	BuildDir  string            `yaml:"build_dir"`
	Defines   map[string]string `yaml:"defines"`
	Env       map[string]string `yaml:"env"`
	Parallel  bool              `yaml:"parallel"`
}

type yamlInstall struct {
	Library           string   `yaml:"library"`
	LibraryExtensions []string `yaml:"library_extensions"`
	Control           string   `yaml:"control"`
	SQL               []string `yaml:"sql"`
	UpdatesDir        string   `yaml:"updates_dir"`
	Installer         string   `yaml:"installer"`
}

type yamlTest struct {
	Preload   bool   `yaml:"preload"`
	Database  string `yaml:"database"`
	Statement string `yaml:"statement"`
}

// RecipeParser parses YAML recipe files
type RecipeParser struct{}

// NewRecipeParser creates a new YAML parser
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseFile parses a YAML recipe file into a Recipe entity
func (p *RecipeParser) ParseFile(filePath string) (*entities.Recipe, error) {
	//nolint:gosec // G304: filePath is recipe definition path from repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a Recipe entity, applying defaults and
// ordering candidate tags newest first
func (p *RecipeParser) Parse(data []byte) (*entities.Recipe, error) {
	var yamlDef yamlRecipe
	if err := yaml.Unmarshal(data, &yamlDef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate required fields
	if yamlDef.Name == "" {
		return nil, fmt.Errorf("recipe must have a name")
	}
	if !recipeNamePattern.MatchString(yamlDef.Name) {
		return nil, fmt.Errorf("invalid recipe name %q", yamlDef.Name)
	}

	postgres, err := convertPostgres(yamlDef.Postgres)
	if err != nil {
		return nil, err
	}

	def := &entities.Recipe{
		Name:              yamlDef.Name,
		Description:       yamlDef.Description,
		Homepage:          yamlDef.Homepage,
		Version:           yamlDef.Version,
		License:           yamlDef.License,
		Source:            entities.RecipeSource{URL: yamlDef.Source.URL},
		BuildDependencies: yamlDef.BuildDependencies,
		Postgres:          postgres,
		Build:             convertBuild(yamlDef.Build),
		Install:           convertInstall(yamlDef.Name, yamlDef.Install),
		Test:              convertTest(yamlDef.Name, yamlDef.Test),
		Caveats:           yamlDef.Caveats,
		Livecheck:         yamlDef.Livecheck,
	}

	return def, nil
}

func convertPostgres(yp yamlPostgres) (entities.PostgresConfig, error) {
	candidates, err := services.SortCandidates(yp.Candidates)
	if err != nil {
		return entities.PostgresConfig{}, err
	}
	if yp.Default != "" {
		if _, err := services.SortCandidates([]string{yp.Default}); err != nil {
			return entities.PostgresConfig{}, fmt.Errorf("invalid default: %w", err)
		}
	}

	pg := entities.PostgresConfig{
		Formula:      yp.Formula,
		Candidates:   candidates,
		Default:      yp.Default,
		ConfigTool:   yp.ConfigTool,
		SearchDirs:   yp.SearchDirs,
		FallbackPath: yp.FallbackPath,
	}
	if pg.Formula == "" {
		pg.Formula = "postgresql"
	}
	if pg.ConfigTool == "" {
		pg.ConfigTool = "pg_config"
	}
	return pg, nil
}

func convertBuild(yb yamlBuild) entities.RecipeBuild {
	b := entities.RecipeBuild{
		SourceDir: yb.SourceDir,
		BuildDir:  yb.BuildDir,
		Defines:   yb.Defines,
		Env:       yb.Env,
		Parallel:  yb.Parallel,
	}
	if b.SourceDir == "" {
		b.SourceDir = "."
	}
	if b.BuildDir == "" {
		b.BuildDir = "build"
	}
	return b
}

func convertInstall(name string, yi yamlInstall) entities.RecipeInstall {
	in := entities.RecipeInstall{
		Library:           yi.Library,
		LibraryExtensions: yi.LibraryExtensions,
		Control:           yi.Control,
		SQL:               yi.SQL,
		UpdatesDir:        yi.UpdatesDir,
		Installer:         yi.Installer,
	}
	if in.Library == "" {
		in.Library = name
	}
	if len(in.LibraryExtensions) == 0 {
		in.LibraryExtensions = []string{".so", ".dylib"}
	}
	if in.Installer == "" {
		in.Installer = name + "_install"
	}
	return in
}

func convertTest(name string, yt yamlTest) entities.RecipeTest {
	t := entities.RecipeTest{
		Preload:   yt.Preload,
		Database:  yt.Database,
		Statement: yt.Statement,
	}
	if t.Database == "" {
		t.Database = "postgres"
	}
	if t.Statement == "" {
		t.Statement = fmt.Sprintf("CREATE EXTENSION %q;", name)
	}
	return t
}
