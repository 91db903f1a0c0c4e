package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
	"github.com/ochairo/pgbrew/internal/domain/services"
)

// ConfigTool reports the database's install directories
type ConfigTool interface {
	PkgLibDir(ctx context.Context) (string, error)
	ShareDir(ctx context.Context) (string, error)
}

// InstallerGenerator writes the installer script into the keg
type InstallerGenerator struct {
	runner *CommandRunner
	logger interfaces.Logger
}

// NewInstallerGenerator creates a new installer generator
func NewInstallerGenerator(runner *CommandRunner, logger interfaces.Logger) *InstallerGenerator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if runner == nil {
		runner = NewCommandRunner(logger)
	}
	return &InstallerGenerator{runner: runner, logger: logger}
}

// WriteInstaller is Generate against the pg_config executable at toolPath
func (g *InstallerGenerator) WriteInstaller(ctx context.Context, toolPath string, keg entities.Keg, build *entities.BuildArtifact, extension, name string) (string, error) {
	return g.Generate(ctx, NewPGConfig(g.runner, toolPath), keg, build, extension, name)
}

// Generate queries tool for the library and share directories and writes
// an executable installer named name into keg.Bin.
//
// Query failures are not fatal: the empty value is embedded as is and the
// broken target only surfaces when the operator runs the script.
func (g *InstallerGenerator) Generate(ctx context.Context, tool ConfigTool, keg entities.Keg, build *entities.BuildArtifact, extension, name string) (string, error) {
	libDir, err := tool.PkgLibDir(ctx)
	if err != nil || libDir == "" {
		g.logger.Warn("Configuration tool returned no library directory",
			interfaces.F("query", "--pkglibdir"), interfaces.Err(err))
	}
	shareDir, err := tool.ShareDir(ctx)
	if err != nil || shareDir == "" {
		g.logger.Warn("Configuration tool returned no share directory",
			interfaces.F("query", "--sharedir"), interfaces.Err(err))
	}

	script := services.BuildInstallerScript(services.InstallerPlan{
		Extension:  extension,
		Library:    filepath.Join(keg.Lib, filepath.Base(build.Library)),
		ShareDir:   keg.Share,
		PkgLibDir:  libDir,
		PGShareDir: shareDir,
	})

	if err := os.MkdirAll(keg.Bin, 0o750); err != nil {
		return "", fmt.Errorf("failed to create bin directory: %w", err)
	}
	path := filepath.Join(keg.Bin, name)
	if err := WriteScript(path, script); err != nil {
		return "", err
	}

	g.logger.Info("Generated installer script",
		interfaces.F("path", path),
		interfaces.F("pkglibdir", libDir),
		interfaces.F("sharedir", shareDir))
	return path, nil
}

// WriteScript creates path empty, writes the rendered script, then sets the
// executable bit.
func WriteScript(path string, script *services.InstallerScript) error {
	//nolint:gosec // G304: path is the keg's bin directory
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create installer script: %w", err)
	}
	if _, err := f.WriteString(script.Render()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write installer script: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close installer script: %w", err)
	}
	//nolint:gosec // G302: installer script must be executable
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("failed to mark installer script executable: %w", err)
	}
	return nil
}
