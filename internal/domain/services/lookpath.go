package services

import (
	"os"
	"path/filepath"
	"strings"
)

// SplitPathList splits a search-path variable into its directory entries.
// Empty entries are dropped.
func SplitPathList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, string(os.PathListSeparator))
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// SplitPathExt splits a PATHEXT-style value on ";". An unset value yields a
// single empty extension so the bare command name is still tried.
func SplitPathExt(value string) []string {
	if value == "" {
		return []string{""}
	}
	return strings.Split(value, ";")
}

// LookPath returns the first "<entry>/<name><ext>" for which isExecutable
// reports true. Entries are tried in order, and for each entry every
// extension is tried in order.
func LookPath(entries, exts []string, name string, isExecutable func(string) bool) (string, bool) {
	if name == "" || isExecutable == nil {
		return "", false
	}
	if len(exts) == 0 {
		exts = []string{""}
	}
	for _, dir := range entries {
		for _, ext := range exts {
			candidate := filepath.Join(dir, name+ext)
			if isExecutable(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}
