package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coecms/mdssprep/pkg/models"
	"go.uber.org/zap"
)

// Walker walks a directory tree and emits entry snapshots in
// deterministic lexicographic order. The walk is read-only and
// single-threaded; a failed stat on an individual entry is reported
// through the snapshot's Err field and never aborts the walk.
type Walker struct {
	logger  *zap.Logger
	exclude map[string]bool

	// OnReadError is called for access failures that have no entry of
	// their own, like a directory whose listing fails after the
	// directory itself was already emitted.
	OnReadError func(path string, err error)
}

// NewWalker creates a new filesystem walker. Directory names in
// exclude are pruned from the walk entirely.
func NewWalker(exclude []string, logger *zap.Logger) *Walker {
	// Build exclude map for fast lookup
	ex := make(map[string]bool)
	for _, dir := range exclude {
		ex[dir] = true
	}

	return &Walker{
		logger:  logger,
		exclude: ex,
	}
}

// Walk recursively walks the tree rooted at root, calling callback for
// every entry exactly once. A root that cannot be read is a fatal
// error; the root entry itself is not emitted.
func (w *Walker) Walk(root string, callback func(*models.Entry) error) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("cannot access scan root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("scan root is not a directory: %s", root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if path == root {
			if err != nil {
				return fmt.Errorf("cannot read scan root: %w", err)
			}
			return nil
		}

		if err != nil {
			w.logger.Warn("Error accessing path", zap.String("path", path), zap.Error(err))
			// WalkDir reports an unreadable directory a second time
			// with the ReadDir error; the directory itself was already
			// emitted on the first visit, so the failure is reported
			// through OnReadError instead of a duplicate entry.
			if d != nil && d.IsDir() {
				if w.OnReadError != nil {
					w.OnReadError(path, err)
				}
				return nil
			}
			return callback(w.errorEntry(root, path, err))
		}

		if d.IsDir() && w.exclude[d.Name()] {
			w.logger.Debug("Skipping excluded directory", zap.String("path", path))
			return filepath.SkipDir
		}

		entry := w.snapshot(root, path, d)
		return callback(entry)
	})
}

// snapshot builds an immutable entry record from a directory entry.
func (w *Walker) snapshot(root, path string, d fs.DirEntry) *models.Entry {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		relPath = path
	}

	entry := &models.Entry{
		Path:         path,
		RelativePath: relPath,
		Name:         d.Name(),
		IsHidden:     isHidden(d.Name()),
	}

	switch {
	case d.Type()&fs.ModeSymlink != 0:
		entry.Kind = models.KindSymlink
	case d.IsDir():
		entry.Kind = models.KindDir
	default:
		entry.Kind = models.KindFile
	}

	// Lstat so symlink metadata describes the link, not the target.
	info, err := os.Lstat(path)
	if err != nil {
		w.logger.Warn("Cannot stat entry", zap.String("path", path), zap.Error(err))
		entry.Err = err
		return entry
	}

	entry.Size = info.Size()
	entry.ModTime = info.ModTime()
	entry.Mode = info.Mode()
	return entry
}

// errorEntry records a path the walk could not access at all.
func (w *Walker) errorEntry(root, path string, err error) *models.Entry {
	relPath, relErr := filepath.Rel(root, path)
	if relErr != nil {
		relPath = path
	}
	return &models.Entry{
		Path:         path,
		RelativePath: relPath,
		Name:         filepath.Base(path),
		Kind:         models.KindFile,
		Err:          err,
	}
}

// IsDanglingSymlink reports whether the symlink at path has no
// resolvable target.
func IsDanglingSymlink(path string) bool {
	_, err := os.Stat(path)
	return err != nil
}

// isHidden checks if a file is hidden
func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
