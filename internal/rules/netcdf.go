package rules

import (
	"bytes"
	"io"
	"os"
)

// Magic bytes for the self-describing formats the site policy treats
// as uncompressible: classic netCDF and netCDF-4/HDF5.
var uncompressibleMagic = map[string][]byte{
	"netCDF classic": {'C', 'D', 'F', 0x01},
	"netCDF 64-bit":  {'C', 'D', 'F', 0x02},
	"netCDF-4/HDF5":  {0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'},
}

// IsUncompressible probes the first bytes of a file for a format that
// is already internally compressed, so the bundler can report that
// gzip will buy nothing for it. A probe failure just means "no".
func IsUncompressible(path string) (bool, string) {
	f, err := os.Open(path)
	if err != nil {
		return false, ""
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && n < 4 {
		return false, ""
	}
	header = header[:n]

	for name, magic := range uncompressibleMagic {
		if len(header) >= len(magic) && bytes.HasPrefix(header, magic) {
			return true, name
		}
	}
	return false, ""
}
