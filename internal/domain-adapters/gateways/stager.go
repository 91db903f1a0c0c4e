package gateways

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
)

// Stager locates build outputs and installs them into the keg
type Stager struct {
	logger interfaces.Logger
}

// NewStager creates a new stager
func NewStager(logger interfaces.Logger) *Stager {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Stager{logger: logger}
}

// Collect finds the files the build produced under srcRoot
func (s *Stager) Collect(srcRoot string, def *entities.Recipe) (*entities.BuildArtifact, error) {
	inst := def.Install
	art := &entities.BuildArtifact{}

	if inst.Control != "" {
		art.Control = filepath.Join(srcRoot, inst.Control)
		if _, err := os.Stat(art.Control); err != nil {
			return nil, fmt.Errorf("control file not found: %w", err)
		}
	}

	for _, pattern := range inst.SQL {
		matches, err := filepath.Glob(filepath.Join(srcRoot, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		art.SQLFiles = append(art.SQLFiles, matches...)
	}

	if inst.UpdatesDir != "" {
		matches, err := filepath.Glob(filepath.Join(srcRoot, inst.UpdatesDir, "*.sql"))
		if err != nil {
			return nil, fmt.Errorf("failed to glob update scripts: %w", err)
		}
		sort.Strings(matches)
		art.UpdateFiles = matches
	}

	lib, ext, err := findLibrary(filepath.Join(srcRoot, def.Build.BuildDir), inst.Library, inst.LibraryExtensions)
	if err != nil {
		return nil, err
	}
	art.Library = lib
	art.LibraryExt = ext

	s.logger.Debug("Collected build artifacts",
		interfaces.F("library", lib),
		interfaces.F("sql_files", len(art.SQLFiles)),
		interfaces.F("update_files", len(art.UpdateFiles)))
	return art, nil
}

// findLibrary returns the first <dir>/<name><ext> that exists, trying
// extensions in order. Exactly one library is ever selected.
func findLibrary(dir, name string, exts []string) (string, string, error) {
	for _, ext := range exts {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, ext, nil
		}
	}
	return "", "", fmt.Errorf("shared library %s not found in %s (tried %v)", name, dir, exts)
}

// UpdateFileName returns the share name of an upgrade script: <extension>--<basename>
func UpdateFileName(extension, path string) string {
	return extension + "--" + filepath.Base(path)
}

// Stage copies the build artifact into the keg: control and SQL files into
// share/, upgrade scripts renamed into share/, the library into lib/.
func (s *Stager) Stage(art *entities.BuildArtifact, keg entities.Keg, extension string) error {
	for _, dir := range []string{keg.Lib, keg.Share} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create keg directory: %w", err)
		}
	}

	shareFiles := make([]string, 0, len(art.SQLFiles)+1)
	if art.Control != "" {
		shareFiles = append(shareFiles, art.Control)
	}
	shareFiles = append(shareFiles, art.SQLFiles...)
	for _, src := range shareFiles {
		if err := copyFile(src, filepath.Join(keg.Share, filepath.Base(src)), 0o644); err != nil {
			return err
		}
	}

	for _, src := range art.UpdateFiles {
		if err := copyFile(src, filepath.Join(keg.Share, UpdateFileName(extension, src)), 0o644); err != nil {
			return err
		}
	}

	if err := copyFile(art.Library, filepath.Join(keg.Lib, filepath.Base(art.Library)), 0o755); err != nil {
		return err
	}

	s.logger.Info("Staged build artifacts",
		interfaces.F("keg", keg.Prefix),
		interfaces.F("share_files", len(shareFiles)+len(art.UpdateFiles)))
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	//nolint:gosec // G304: src comes from the build tree
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	//nolint:gosec // G304: dst is inside the keg
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return os.Chmod(dst, perm)
}
