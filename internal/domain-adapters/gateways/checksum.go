package gateways

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Checksummer computes SHA256 digests for archives produced by pgbrew
type Checksummer struct{}

// NewChecksummer creates a new checksummer
func NewChecksummer() *Checksummer {
	return &Checksummer{}
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (c *Checksummer) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is an archive we produced
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteSidecar writes <file>.sha256 in sha256sum format and returns its path
func (c *Checksummer) WriteSidecar(filePath string) (string, error) {
	sum, err := c.CalculateChecksum(filePath)
	if err != nil {
		return "", err
	}

	sidecar := filePath + ".sha256"
	content := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	if err := os.WriteFile(sidecar, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write SHA256 file: %w", err)
	}

	return sidecar, nil
}
