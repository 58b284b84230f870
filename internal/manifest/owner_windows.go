//go:build windows

package manifest

import "io/fs"

// fileOwner is a no-op on Windows; ownership is not recorded.
func fileOwner(info fs.FileInfo) (string, string) {
	return "", ""
}
