package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

func lanternRecipe() *entities.Recipe {
	return &entities.Recipe{
		Name:    "lantern",
		Version: "0.5.0",
		Build:   entities.RecipeBuild{SourceDir: "lantern_hnsw", BuildDir: "build"},
		Install: entities.RecipeInstall{
			Library:           "lantern",
			LibraryExtensions: []string{".so", ".dylib"},
			Control:           "build/lantern.control",
			SQL:               []string{"build/lantern--*.sql"},
			UpdatesDir:        "sql/updates",
			Installer:         "lantern_install",
		},
	}
}

// writeBuildTree lays out what a finished build leaves behind
func writeBuildTree(t *testing.T, libs []string, updates int) string {
	t.Helper()
	root := t.TempDir()
	files := []string{"build/lantern.control", "build/lantern--0.5.0.sql"}
	for _, lib := range libs {
		files = append(files, "build/"+lib)
	}
	for i := 0; i < updates; i++ {
		files = append(files, fmt.Sprintf("sql/updates/0.%d.0-0.%d.0.sql", i, i+1))
	}
	files = append(files, "sql/updates/README.md")
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(f), 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", f, err)
		}
	}
	return root
}

func TestStager_Collect(t *testing.T) {
	root := writeBuildTree(t, []string{"lantern.so"}, 3)

	art, err := NewStager(nil).Collect(root, lanternRecipe())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if art.Control != filepath.Join(root, "build", "lantern.control") {
		t.Errorf("Control = %s", art.Control)
	}
	if len(art.SQLFiles) != 1 {
		t.Errorf("SQLFiles = %v, want 1 file", art.SQLFiles)
	}
	if len(art.UpdateFiles) != 3 {
		t.Errorf("UpdateFiles = %v, want 3 files", art.UpdateFiles)
	}
	if art.LibraryExt != ".so" {
		t.Errorf("LibraryExt = %s, want .so", art.LibraryExt)
	}
}

func TestStager_Collect_LibraryExtension(t *testing.T) {
	tests := []struct {
		name string
		libs []string
		want string
	}{
		{"linux", []string{"lantern.so"}, ".so"},
		{"darwin", []string{"lantern.dylib"}, ".dylib"},
		{"both prefers .so", []string{"lantern.dylib", "lantern.so"}, ".so"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeBuildTree(t, tt.libs, 0)
			art, err := NewStager(nil).Collect(root, lanternRecipe())
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}
			if art.LibraryExt != tt.want {
				t.Errorf("LibraryExt = %s, want %s", art.LibraryExt, tt.want)
			}
			if filepath.Base(art.Library) != "lantern"+tt.want {
				t.Errorf("Library = %s", art.Library)
			}
		})
	}
}

func TestStager_Collect_MissingLibrary(t *testing.T) {
	root := writeBuildTree(t, nil, 0)
	if _, err := NewStager(nil).Collect(root, lanternRecipe()); err == nil {
		t.Error("Collect() should fail without a shared library")
	}
}

func TestStager_Stage_RenamesUpdates(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d updates", n), func(t *testing.T) {
			root := writeBuildTree(t, []string{"lantern.so"}, n)
			stager := NewStager(nil)
			art, err := stager.Collect(root, lanternRecipe())
			if err != nil {
				t.Fatalf("Collect() error = %v", err)
			}

			keg := entities.NewKeg(t.TempDir(), "lantern", "0.5.0")
			if err := stager.Stage(art, keg, "lantern"); err != nil {
				t.Fatalf("Stage() error = %v", err)
			}

			entries, err := os.ReadDir(keg.Share)
			if err != nil {
				t.Fatalf("ReadDir() error = %v", err)
			}
			var renamed []string
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), "lantern--0.") && strings.Count(e.Name(), "-") > 2 {
					renamed = append(renamed, e.Name())
				}
			}
			if len(renamed) != n {
				t.Errorf("renamed update files = %v, want %d", renamed, n)
			}
			sort.Strings(renamed)
			for i, name := range renamed {
				want := fmt.Sprintf("lantern--0.%d.0-0.%d.0.sql", i, i+1)
				if name != want {
					t.Errorf("renamed[%d] = %s, want %s", i, name, want)
				}
			}

			for _, f := range []string{"lantern.control", "lantern--0.5.0.sql"} {
				info, err := os.Stat(filepath.Join(keg.Share, f))
				if err != nil {
					t.Errorf("share file %s missing: %v", f, err)
					continue
				}
				if info.Mode().Perm() != 0o644 {
					t.Errorf("%s mode = %v, want 0644", f, info.Mode().Perm())
				}
			}
			if _, err := os.Stat(filepath.Join(keg.Lib, "lantern.so")); err != nil {
				t.Errorf("library not staged: %v", err)
			}
		})
	}
}

func TestUpdateFileName(t *testing.T) {
	if got := UpdateFileName("lantern", "/src/sql/updates/0.0.1-0.0.2.sql"); got != "lantern--0.0.1-0.0.2.sql" {
		t.Errorf("UpdateFileName() = %s", got)
	}
}
