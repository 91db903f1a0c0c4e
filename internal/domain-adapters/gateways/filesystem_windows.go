//go:build windows

package gateways

import "os"

// isExecutable treats any regular file as executable; PATHEXT decides which
// names are probed.
func isExecutable(_ string, info os.FileInfo) bool {
	return info.Mode().IsRegular()
}
