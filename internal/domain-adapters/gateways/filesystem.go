package gateways

import (
	"os"
)

// OSFileSystem probes the real filesystem for the dependency resolver
type OSFileSystem struct{}

// NewOSFileSystem creates a filesystem probe
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// Exists reports whether path exists
func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsExecutable reports whether path is an executable, non-directory file
func (OSFileSystem) IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return isExecutable(path, info)
}

// OSEnvironment reads the process environment
type OSEnvironment struct{}

// Getenv returns the value of key
func (OSEnvironment) Getenv(key string) string {
	return os.Getenv(key)
}
