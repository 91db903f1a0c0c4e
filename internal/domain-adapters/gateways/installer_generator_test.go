//go:build unix

package gateways

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

// writeFakePGConfig writes a pg_config stand-in answering --pkglibdir and --sharedir
func writeFakePGConfig(t *testing.T, libDir, shareDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pg_config")
	script := fmt.Sprintf(`#!/bin/sh
case "$1" in
  --pkglibdir) echo "%s" ;;
  --sharedir) echo "%s" ;;
  *) exit 1 ;;
esac
`, libDir, shareDir)
	//nolint:gosec // G306: Test executable needs 0700 permissions
	if err := os.WriteFile(path, []byte(script), 0700); err != nil {
		t.Fatalf("Failed to write fake pg_config: %v", err)
	}
	return path
}

func newTestKeg(t *testing.T, libName string, shareFiles ...string) entities.Keg {
	t.Helper()
	prefix := t.TempDir()
	keg := entities.Keg{
		Prefix: prefix,
		Lib:    filepath.Join(prefix, "lib"),
		Share:  filepath.Join(prefix, "share"),
		Bin:    filepath.Join(prefix, "bin"),
	}
	for _, dir := range []string{keg.Lib, keg.Share} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(keg.Lib, libName), []byte("ELF"), 0600); err != nil {
		t.Fatalf("Failed to write library: %v", err)
	}
	for _, name := range shareFiles {
		if err := os.WriteFile(filepath.Join(keg.Share, name), []byte("-- "+name), 0600); err != nil {
			t.Fatalf("Failed to write share file: %v", err)
		}
	}
	return keg
}

func TestPGConfig_Query(t *testing.T) {
	tool := NewPGConfig(NewCommandRunner(nil), writeFakePGConfig(t, "/pg/lib", "/pg/share"))

	lib, err := tool.PkgLibDir(context.Background())
	if err != nil || lib != "/pg/lib" {
		t.Errorf("PkgLibDir() = %q, %v", lib, err)
	}
	share, err := tool.ShareDir(context.Background())
	if err != nil || share != "/pg/share" {
		t.Errorf("ShareDir() = %q, %v", share, err)
	}
	if _, err := tool.BinDir(context.Background()); err == nil {
		t.Error("BinDir() should fail for an unsupported flag")
	}
}

func TestInstallerGenerator_Generate(t *testing.T) {
	keg := newTestKeg(t, "lantern.so", "lantern.control")
	tool := NewPGConfig(NewCommandRunner(nil), writeFakePGConfig(t, "/pg/lib", "/pg/share"))

	path, err := NewInstallerGenerator(nil, nil).Generate(context.Background(), tool, keg,
		&entities.BuildArtifact{Library: "/build/lantern.so", LibraryExt: ".so"}, "lantern", "lantern_install")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if path != filepath.Join(keg.Bin, "lantern_install") {
		t.Errorf("Generate() path = %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("installer not written: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("installer mode = %v, want 0755", info.Mode().Perm())
	}

	//nolint:gosec // G304: test reads the file it just generated
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read installer: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"#!/bin/bash\n",
		"/usr/bin/install -c -m 755 " + filepath.Join(keg.Lib, "lantern.so") + " /pg/lib/",
		"/usr/bin/install -c -m 644 " + keg.Share + "/* /pg/share/extension/",
		"echo Success.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("installer missing %q\n%s", want, text)
		}
	}
	if strings.Contains(text, ".dylib") {
		t.Error("installer must not reference .dylib for a .so build")
	}
}

type failingTool struct{}

func (failingTool) PkgLibDir(context.Context) (string, error) { return "", errors.New("exit 1") }
func (failingTool) ShareDir(context.Context) (string, error)  { return "", nil }

func TestInstallerGenerator_QueryFailureIsDeferred(t *testing.T) {
	keg := newTestKeg(t, "lantern.dylib")

	path, err := NewInstallerGenerator(nil, nil).Generate(context.Background(), failingTool{}, keg,
		&entities.BuildArtifact{Library: "/build/lantern.dylib", LibraryExt: ".dylib"}, "lantern", "lantern_install")
	if err != nil {
		t.Fatalf("Generate() error = %v, want the script written anyway", err)
	}
	//nolint:gosec // G304: test reads the file it just generated
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), " /extension/") {
		t.Errorf("installer should embed the empty share dir verbatim:\n%s", data)
	}
}

func TestInstallerScript_RerunIsIdempotent(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not found in PATH")
	}
	if _, err := os.Stat("/usr/bin/install"); err != nil {
		t.Skip("/usr/bin/install not available")
	}

	keg := newTestKeg(t, "lantern.so", "lantern.control", "lantern--0.5.0.sql")
	pgRoot := t.TempDir()
	libDir := filepath.Join(pgRoot, "lib")
	shareDir := filepath.Join(pgRoot, "share")
	for _, dir := range []string{libDir, filepath.Join(shareDir, "extension")} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}
	tool := NewPGConfig(NewCommandRunner(nil), writeFakePGConfig(t, libDir, shareDir))

	path, err := NewInstallerGenerator(nil, nil).Generate(context.Background(), tool, keg,
		&entities.BuildArtifact{Library: "lantern.so", LibraryExt: ".so"}, "lantern", "lantern_install")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	snapshot := func() string {
		var b strings.Builder
		_ = filepath.Walk(pgRoot, func(p string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			//nolint:gosec // G304: walking the test's own temp dir
			data, _ := os.ReadFile(p)
			fmt.Fprintf(&b, "%s %v %s\n", p, info.Mode().Perm(), data)
			return nil
		})
		return b.String()
	}

	runner := NewCommandRunner(nil)
	if res := runner.Execute(context.Background(), ExecuteConfig{Name: "bash", Args: []string{path}}); !res.Success {
		t.Fatalf("first run failed: %v", res.Err("installer"))
	}
	first := snapshot()
	if res := runner.Execute(context.Background(), ExecuteConfig{Name: "bash", Args: []string{path}}); !res.Success {
		t.Fatalf("second run failed: %v", res.Err("installer"))
	}
	if second := snapshot(); first != second {
		t.Errorf("state differs after rerun:\nfirst:\n%s\nsecond:\n%s", first, second)
	}

	if _, err := os.Stat(filepath.Join(shareDir, "extension", "lantern--0.5.0.sql")); err != nil {
		t.Errorf("share file not installed: %v", err)
	}
	info, err := os.Stat(filepath.Join(libDir, "lantern.so"))
	if err != nil {
		t.Fatalf("library not installed: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("library mode = %v, want 0755", info.Mode().Perm())
	}
}
