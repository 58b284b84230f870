package rules

import (
	"github.com/coecms/mdssprep/pkg/models"
)

// ManifestIndex is the view of the prep manifest the already-archived
// rule needs: a cheap lookup of what was recorded for a path.
type ManifestIndex interface {
	// Lookup returns the recorded size and mtime (unix seconds) for a
	// path, and whether the path is present at all.
	Lookup(path string) (size int64, mtimeUnix int64, ok bool)
}

// ArchivedRule skips files already recorded in the prep manifest with
// unchanged size and mtime. Content changes hiding behind an unchanged
// mtime are caught later by the manifest's full-hash check; the scan
// itself stays metadata-only.
type ArchivedRule struct {
	*BaseRule
	manifest ManifestIndex
}

// NewArchivedRule creates a new already-archived rule
func NewArchivedRule(manifest ManifestIndex) *ArchivedRule {
	return &ArchivedRule{
		BaseRule: NewBaseRule("already-archived", 80, []models.EntryKind{models.KindFile}),
		manifest: manifest,
	}
}

// Evaluate skips entries whose manifest record still matches.
func (r *ArchivedRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if r.manifest == nil {
		return models.Classification{}, false
	}

	size, mtime, ok := r.manifest.Lookup(entry.Path)
	if !ok {
		return models.Classification{}, false
	}

	if size == entry.Size && mtime == entry.ModTime.Unix() {
		return models.Skipped(r.Name(), "already archived"), true
	}

	return models.Classification{}, false
}
