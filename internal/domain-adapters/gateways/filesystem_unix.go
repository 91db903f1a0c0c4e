//go:build unix

package gateways

import (
	"os"

	"golang.org/x/sys/unix"
)

// isExecutable asks the kernel whether the current user may execute path,
// which accounts for ownership and ACLs rather than just mode bits.
func isExecutable(path string, _ os.FileInfo) bool {
	return unix.Access(path, unix.X_OK) == nil
}
