package filesystem

import (
	"crypto/md5"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// FastHash calculates the CRC32 hash of the file at path. Used as the
// cheap first-pass manifest check.
func FastHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return fmt.Sprintf("%08x", h.Sum32()), nil
}

// FullHash calculates the MD5 hash of the file at path. Matches the
// checksum embedded in bundle PAX headers.
func FullHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return HashStream(f)
}

// HashStream calculates the MD5 hash of a reader.
func HashStream(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash stream: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
