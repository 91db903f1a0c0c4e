package gateways

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
)

// defaultMaxEntrySize caps a single extracted file
const defaultMaxEntrySize = 1 << 30

// Downloader fetches and unpacks recipe source archives
type Downloader struct {
	httpClient   *http.Client
	userAgent    string
	maxEntrySize int64
	logger       interfaces.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(logger interfaces.Logger) *Downloader {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Downloader{
		httpClient:   &http.Client{},
		userAgent:    "pgbrew/1.0",
		maxEntrySize: defaultMaxEntrySize,
		logger:       logger,
	}
}

// BuildSourceURL substitutes {version} in the recipe URL template
func BuildSourceURL(template, version string) string {
	return strings.ReplaceAll(template, "{version}", version)
}

// FetchSource downloads the recipe's source archive into outputDir and
// extracts it. The returned artifact points at the unpacked source root.
func (d *Downloader) FetchSource(ctx context.Context, def *entities.Recipe, version, outputDir string) (*entities.Artifact, error) {
	if def.Source.URL == "" {
		return nil, fmt.Errorf("recipe %s has no source url", def.Name)
	}
	url := BuildSourceURL(def.Source.URL, version)

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := filepath.Base(url)
	outputPath := filepath.Join(outputDir, filename)
	if err := d.downloadFile(ctx, url, outputPath); err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if !strings.HasSuffix(filename, ".tar.gz") && !strings.HasSuffix(filename, ".tgz") {
		return nil, fmt.Errorf("unsupported source archive %s", filename)
	}

	baseName := strings.TrimSuffix(strings.TrimSuffix(filename, ".tar.gz"), ".tgz")
	extractDir := filepath.Join(outputDir, baseName+"-extracted")
	if err := d.extractTarGz(ctx, outputPath, extractDir); err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	// Most source tarballs unpack into a single top-level directory
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted directory: %w", err)
	}
	finalPath := extractDir
	if len(entries) == 1 && entries[0].IsDir() {
		finalPath = filepath.Join(extractDir, entries[0].Name())
	}

	return &entities.Artifact{
		Name:    def.Name,
		Version: version,
		Path:    finalPath,
		Type:    "source",
	}, nil
}

func (d *Downloader) downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	//nolint:gosec // G304: dest is inside the work directory
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	d.logger.Info("Downloaded source", interfaces.F("file", filepath.Base(dest)), interfaces.F("bytes", written))
	return nil
}

// withinDir reports whether target resolves inside dir
func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (d *Downloader) extractTarGz(ctx context.Context, tarPath, destDir string) error {
	//nolint:gosec // G304: tarPath is the archive we just downloaded
	file, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	//nolint:errcheck // Defer close on gzip reader
	defer gzr.Close()

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	tr := tar.NewReader(gzr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		//nolint:gosec // G305: Path traversal validated by withinDir below
		target := filepath.Join(destDir, header.Name)
		if !withinDir(destDir, target) {
			return fmt.Errorf("invalid file path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}

			//nolint:gosec // G115: Integer overflow from tar header mode is acceptable
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}
			n, err := io.Copy(outFile, io.LimitReader(tr, d.maxEntrySize+1))
			if err != nil {
				_ = outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if n > d.maxEntrySize {
				_ = outFile.Close()
				return fmt.Errorf("archive entry %s exceeds %d bytes", header.Name, d.maxEntrySize)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("failed to close file: %w", err)
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, symlinkInfo{target: target, linkname: header.Linkname})

		default:
			d.logger.Warn("Ignoring unsupported tar entry",
				interfaces.F("type", string(header.Typeflag)),
				interfaces.F("name", header.Name))
		}
	}

	// Symlinks last so their targets exist
	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		if err := os.Symlink(link.linkname, link.target); err != nil {
			d.logger.Warn("Failed to create symlink",
				interfaces.F("link", link.target),
				interfaces.F("target", link.linkname),
				interfaces.Err(err))
		}
	}

	d.logger.Debug("Extracted source", interfaces.F("dir", destDir))
	return nil
}
