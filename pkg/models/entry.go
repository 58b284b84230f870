package models

import (
	"io/fs"
	"time"
)

// EntryKind distinguishes the filesystem object types the scanner
// classifies.
type EntryKind string

const (
	KindFile    EntryKind = "file"
	KindDir     EntryKind = "directory"
	KindSymlink EntryKind = "symlink"
)

// Entry is an immutable snapshot of a filesystem entry taken at scan
// time.
type Entry struct {
	Path         string      // Full path
	RelativePath string      // Path relative to scan root
	Name         string      // Base name
	Kind         EntryKind   // file, directory or symlink
	Size         int64       // Size in bytes (0 for directories)
	ModTime      time.Time   // Modification time
	Mode         fs.FileMode // File mode bits
	IsHidden     bool        // Name starts with a dot

	// Err carries a stat or read error encountered while snapshotting
	// this entry. A non-nil Err never aborts the scan; the entry is
	// classified Skipped with the error as reason.
	Err error
}
