package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func execSet(paths ...string) func(string) bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[filepath.Clean(p)] = true
	}
	return func(p string) bool { return set[filepath.Clean(p)] }
}

func TestLookPath(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		exts    []string
		execs   []string
		want    string
		wantOK  bool
	}{
		{
			name:    "single match",
			entries: []string{"/a", "/b"},
			exts:    []string{""},
			execs:   []string{"/b/pg_config"},
			want:    "/b/pg_config",
			wantOK:  true,
		},
		{
			name:    "first entry in path order wins",
			entries: []string{"/a", "/b", "/c"},
			exts:    []string{""},
			execs:   []string{"/c/pg_config", "/b/pg_config"},
			want:    "/b/pg_config",
			wantOK:  true,
		},
		{
			name:    "extension list is tried per entry",
			entries: []string{"/a", "/b"},
			exts:    []string{".COM", ".EXE"},
			execs:   []string{"/b/pg_config.COM", "/a/pg_config.EXE"},
			want:    "/a/pg_config.EXE",
			wantOK:  true,
		},
		{
			name:    "no match",
			entries: []string{"/a"},
			exts:    []string{""},
			execs:   []string{"/a/psql"},
			wantOK:  false,
		},
		{
			name:    "empty extension list behaves like bare name",
			entries: []string{"/a"},
			execs:   []string{"/a/pg_config"},
			want:    "/a/pg_config",
			wantOK:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LookPath(tt.entries, tt.exts, "pg_config", execSet(tt.execs...))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestLookPath_NilPredicate(t *testing.T) {
	_, ok := LookPath([]string{"/a"}, nil, "pg_config", nil)
	assert.False(t, ok)
}

func TestSplitPathList(t *testing.T) {
	sep := string(os.PathListSeparator)
	assert.Nil(t, SplitPathList(""))
	assert.Equal(t, []string{"/usr/bin", "/bin"}, SplitPathList(strings.Join([]string{"/usr/bin", "", "/bin"}, sep)))
}

func TestSplitPathExt(t *testing.T) {
	assert.Equal(t, []string{""}, SplitPathExt(""))
	assert.Equal(t, []string{".COM", ".EXE", ".BAT"}, SplitPathExt(".COM;.EXE;.BAT"))
}
