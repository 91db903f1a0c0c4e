package gateways

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/klauspost/compress/gzip"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

// Packager bottles a keg into a distributable archive
type Packager struct{}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{}
}

// Platform returns the current <os>-<arch> platform string
func Platform() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

// ArchiveName returns <name>-<version>-<platform>.tar.gz
func ArchiveName(name, version, platform string) string {
	return fmt.Sprintf("%s-%s-%s.tar.gz", name, version, platform)
}

// PackageKeg archives the keg as <name>/<version>/... into outputDir.
// Returns an artifact pointing to the tar.gz file.
func (p *Packager) PackageKeg(
	ctx context.Context,
	def *entities.Recipe,
	keg entities.Keg,
	platform, outputDir string,
) (*entities.Artifact, error) {
	info, err := os.Stat(keg.Prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to stat keg: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keg %s is not a directory", keg.Prefix)
	}

	if outputDir == "" {
		outputDir = "dist"
	}
	tarballPath := filepath.Join(outputDir, ArchiveName(def.Name, def.Version, platform))

	if err := p.createTarball(ctx, keg.Prefix, path.Join(def.Name, def.Version), tarballPath); err != nil {
		return nil, fmt.Errorf("failed to create tarball: %w", err)
	}

	return &entities.Artifact{
		Name:     def.Name,
		Version:  def.Version,
		Platform: platform,
		Path:     tarballPath,
		Type:     "archive",
	}, nil
}

// createTarball writes a gzipped tar of sourceDir with entries rooted at prefix
func (p *Packager) createTarball(ctx context.Context, sourceDir, prefix, tarballPath string) (err error) {
	if err := os.MkdirAll(filepath.Dir(tarballPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: tarballPath is constructed for package output
	file, err := os.Create(tarballPath)
	if err != nil {
		return fmt.Errorf("failed to create tarball file: %w", err)
	}
	gzipWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzipWriter)
	defer func() {
		for _, c := range []io.Closer{tarWriter, gzipWriter, file} {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to finalize tarball: %w", cerr)
			}
		}
	}()

	return filepath.Walk(sourceDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(filePath)
			if err != nil {
				return fmt.Errorf("failed to read symlink %s: %w", filePath, err)
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}

		relPath, err := filepath.Rel(sourceDir, filePath)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if relPath == "." {
			header.Name = prefix + "/"
		} else {
			header.Name = path.Join(prefix, filepath.ToSlash(relPath))
			if info.IsDir() {
				header.Name += "/"
			}
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		return copyIntoTar(tarWriter, filePath)
	})
}

func copyIntoTar(w io.Writer, filePath string) error {
	//nolint:gosec // G304: File path from filepath.Walk for packaging
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write file to tar: %w", err)
	}
	return nil
}
