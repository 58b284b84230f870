package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coecms/mdssprep/internal/filesystem"
	"gopkg.in/yaml.v3"
)

// Fast hashes are cheap enough to run on every check; the full hash is
// the fallback when a fast hash disagrees.
const (
	FastHashName = "crc32"
	FullHashName = "md5"
)

// Record describes one prepared file.
type Record struct {
	Size      int64             `yaml:"size"`
	Mtime     int64             `yaml:"mtime"`
	MtimeLong string            `yaml:"mtime_long"`
	Username  string            `yaml:"username,omitempty"`
	Group     string            `yaml:"group,omitempty"`
	Hashes    map[string]string `yaml:"hashes"`
	Bundle    string            `yaml:"bundle,omitempty"` // bundle file name, empty for individual candidates
}

// Manifest records what a prep run did to a directory tree, keyed by
// path relative to the tree root. It is read at scan time (for the
// already-archived rule) and rewritten after a successful prep.
type Manifest struct {
	Format int                `yaml:"format"`
	Files  map[string]*Record `yaml:"files"`

	root string
	path string
}

// New creates an empty manifest for the tree rooted at root, stored at
// path.
func New(root, path string) *Manifest {
	return &Manifest{
		Format: 1,
		Files:  make(map[string]*Record),
		root:   root,
		path:   path,
	}
}

// Load reads the manifest for root from path. A missing file yields an
// empty manifest.
func Load(root, path string) (*Manifest, error) {
	m := New(root, path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Files == nil {
		m.Files = make(map[string]*Record)
	}

	return m, nil
}

// Save writes the manifest to its path.
func (m *Manifest) Save() error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(m.path, data, 0644)
}

// Path returns the manifest file location.
func (m *Manifest) Path() string {
	return m.path
}

// Len returns the number of recorded files.
func (m *Manifest) Len() int {
	return len(m.Files)
}

// Add records a prepared file, computing both hashes from its current
// content. bundle names the archive the file was placed in, or is
// empty for files submitted individually.
func (m *Manifest) Add(path string, bundle string) error {
	rel, err := m.relative(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	fast, err := filesystem.FastHash(path)
	if err != nil {
		return err
	}
	full, err := filesystem.FullHash(path)
	if err != nil {
		return err
	}

	rec := &Record{
		Size:      info.Size(),
		Mtime:     info.ModTime().Unix(),
		MtimeLong: info.ModTime().Format(time.ANSIC),
		Hashes: map[string]string{
			FastHashName: fast,
			FullHashName: full,
		},
		Bundle: bundle,
	}
	rec.Username, rec.Group = fileOwner(info)

	m.Files[rel] = rec
	return nil
}

// Lookup returns the recorded size and mtime for an absolute path.
// Implements the scanner's manifest index.
func (m *Manifest) Lookup(path string) (int64, int64, bool) {
	rel, err := m.relative(path)
	if err != nil {
		return 0, 0, false
	}
	rec, ok := m.Files[rel]
	if !ok {
		return 0, 0, false
	}
	return rec.Size, rec.Mtime, true
}

// CheckFast verifies a recorded file against its current content. The
// fast hash is tried first; on disagreement the full hash decides, so
// a stale fast hash alone never declares a file changed.
func (m *Manifest) CheckFast(path string) (bool, error) {
	rel, err := m.relative(path)
	if err != nil {
		return false, err
	}
	rec, ok := m.Files[rel]
	if !ok {
		return false, fmt.Errorf("not in manifest: %s", path)
	}

	fast, err := filesystem.FastHash(path)
	if err != nil {
		return false, err
	}
	if fast == rec.Hashes[FastHashName] {
		return true, nil
	}

	full, err := filesystem.FullHash(path)
	if err != nil {
		return false, err
	}
	if full == rec.Hashes[FullHashName] {
		// Content unchanged; refresh the stale fast hash.
		rec.Hashes[FastHashName] = fast
		return true, nil
	}

	return false, nil
}

func (m *Manifest) relative(path string) (string, error) {
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		return "", fmt.Errorf("path %s is not under manifest root %s: %w", path, m.root, err)
	}
	return filepath.ToSlash(rel), nil
}
