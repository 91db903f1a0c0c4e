// Package entities defines core domain models and data structures.
package entities

import "path/filepath"

// Artifact represents a file or directory produced along the install pipeline
type Artifact struct {
	Name     string
	Version  string
	Platform string
	Path     string
	Type     string // "source", "keg", "archive"
}

// BuildArtifact is the set of files the external build system produced.
// It is read-only once collected.
type BuildArtifact struct {
	Control     string
	SQLFiles    []string
	UpdateFiles []string
	Library     string
	LibraryExt  string // ".so" or ".dylib"
}

// Keg is the versioned install prefix of one recipe.
type Keg struct {
	Prefix string
	Lib    string
	Share  string
	Bin    string
}

// NewKeg returns the keg layout <cellar>/<name>/<version>
func NewKeg(cellar, name, version string) Keg {
	prefix := filepath.Join(cellar, name, version)
	return Keg{
		Prefix: prefix,
		Lib:    filepath.Join(prefix, "lib"),
		Share:  filepath.Join(prefix, "share"),
		Bin:    filepath.Join(prefix, "bin"),
	}
}
