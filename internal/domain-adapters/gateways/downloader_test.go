package gateways

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func buildTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Typeflag: e.typeflag, Linkname: e.linkname, Mode: 0o644}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0o755
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader() error = %v", err)
		}
		if e.typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gzw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func serveArchive(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "lantern-v0.5.0-source.tar.gz") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildSourceURL(t *testing.T) {
	got := BuildSourceURL("https://github.com/lanterndata/lantern/releases/download/v{version}/lantern-v{version}-source.tar.gz", "0.5.0")
	want := "https://github.com/lanterndata/lantern/releases/download/v0.5.0/lantern-v0.5.0-source.tar.gz"
	if got != want {
		t.Errorf("BuildSourceURL() = %v, want %v", got, want)
	}
}

func TestDownloader_FetchSource(t *testing.T) {
	data := buildTarGz(t, []tarEntry{
		{name: "lantern-0.5.0/", typeflag: tar.TypeDir},
		{name: "lantern-0.5.0/lantern_hnsw/CMakeLists.txt", body: "project(lantern)", typeflag: tar.TypeReg},
		{name: "lantern-0.5.0/lantern_hnsw/sql/updates/0.4.0--0.5.0.sql", body: "-- upgrade", typeflag: tar.TypeReg},
		{name: "lantern-0.5.0/LICENSE", typeflag: tar.TypeSymlink, linkname: "lantern_hnsw/CMakeLists.txt"},
	})
	srv := serveArchive(t, data)

	def := &entities.Recipe{
		Name:   "lantern",
		Source: entities.RecipeSource{URL: srv.URL + "/v{version}/lantern-v{version}-source.tar.gz"},
	}

	art, err := NewDownloader(nil).FetchSource(context.Background(), def, "0.5.0", t.TempDir())
	if err != nil {
		t.Fatalf("FetchSource() error = %v", err)
	}
	if art.Type != "source" {
		t.Errorf("Type = %s, want source", art.Type)
	}
	if filepath.Base(art.Path) != "lantern-0.5.0" {
		t.Errorf("Path = %s, want the single top-level directory", art.Path)
	}

	//nolint:gosec // G304: test file
	content, err := os.ReadFile(filepath.Join(art.Path, "lantern_hnsw", "CMakeLists.txt"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(content) != "project(lantern)" {
		t.Errorf("content = %q", content)
	}
	if _, err := os.Lstat(filepath.Join(art.Path, "LICENSE")); err != nil {
		t.Errorf("symlink not created: %v", err)
	}
}

func TestDownloader_FetchSource_HTTPError(t *testing.T) {
	srv := serveArchive(t, nil)
	def := &entities.Recipe{
		Name:   "lantern",
		Source: entities.RecipeSource{URL: srv.URL + "/missing-{version}.tar.gz"},
	}

	_, err := NewDownloader(nil).FetchSource(context.Background(), def, "0.5.0", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("FetchSource() error = %v, want HTTP 404", err)
	}
}

func TestDownloader_FetchSource_NoURL(t *testing.T) {
	def := &entities.Recipe{Name: "lantern"}
	if _, err := NewDownloader(nil).FetchSource(context.Background(), def, "0.5.0", t.TempDir()); err == nil {
		t.Error("FetchSource() should fail without a source url")
	}
}

func TestDownloader_ExtractTarGz_PathTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	archive := filepath.Join(tmpDir, "evil.tar.gz")
	data := buildTarGz(t, []tarEntry{
		{name: "../escape.txt", body: "pwned", typeflag: tar.TypeReg},
	})
	if err := os.WriteFile(archive, data, 0600); err != nil {
		t.Fatal(err)
	}

	destDir := filepath.Join(tmpDir, "out")
	err := NewDownloader(nil).extractTarGz(context.Background(), archive, destDir)
	if err == nil || !strings.Contains(err.Error(), "invalid file path") {
		t.Errorf("extractTarGz() error = %v, want invalid file path", err)
	}
	if _, statErr := os.Stat(filepath.Join(tmpDir, "escape.txt")); statErr == nil {
		t.Error("path traversal entry was written outside the destination")
	}
}

func TestDownloader_ExtractTarGz_EntrySizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"at limit", "12345678", false},
		{"over limit", "123456789", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			archive := filepath.Join(tmpDir, "src.tar.gz")
			data := buildTarGz(t, []tarEntry{
				{name: "big.bin", body: tt.body, typeflag: tar.TypeReg},
			})
			if err := os.WriteFile(archive, data, 0600); err != nil {
				t.Fatal(err)
			}

			d := NewDownloader(nil)
			d.maxEntrySize = 8
			err := d.extractTarGz(context.Background(), archive, filepath.Join(tmpDir, "out"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractTarGz() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), "exceeds 8 bytes") {
				t.Errorf("extractTarGz() error = %v, want size limit error", err)
			}
		})
	}
}

func TestWithinDir(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"/work/out/a.txt", true},
		{"/work/out", true},
		{"/work/out/../escape", false},
		{"/work/outside/a.txt", false},
		{"/work/out/..foo", true},
	}
	for _, tt := range tests {
		if got := withinDir("/work/out", tt.target); got != tt.want {
			t.Errorf("withinDir(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
