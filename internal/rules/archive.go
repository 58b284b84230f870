package rules

import (
	"regexp"

	"github.com/coecms/mdssprep/pkg/models"
)

// Bundle file names as written by the bundler: a 6-byte blake2b hash
// of the directory path plus a running archive number.
var bundleNameRe = regexp.MustCompile(`^archive_[0-9a-f]{12}_\d{3}\.tar(\.gz)?$`)

// OwnArchiveRule skips the tool's own output: bundles produced by a
// previous mdssprep run and the prep manifest itself. Re-running on
// the same tree must never re-archive either.
type OwnArchiveRule struct {
	*BaseRule
	manifestName string
}

// NewOwnArchiveRule creates a new own-archive rule. manifestName is
// the manifest file name inside the scanned root; empty disables the
// manifest check.
func NewOwnArchiveRule(manifestName string) *OwnArchiveRule {
	return &OwnArchiveRule{
		BaseRule:     NewBaseRule("own-archive", 90, []models.EntryKind{models.KindFile}),
		manifestName: manifestName,
	}
}

// Evaluate skips files named like mdssprep bundles and the manifest.
func (r *OwnArchiveRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if r.manifestName != "" && entry.Name == r.manifestName {
		return models.Skipped(r.Name(), "mdssprep manifest"), true
	}
	if bundleNameRe.MatchString(entry.Name) {
		return models.Skipped(r.Name(), "mdssprep archive from previous run"), true
	}
	return models.Classification{}, false
}

// IsBundleName reports whether name matches the bundler's output
// naming scheme.
func IsBundleName(name string) bool {
	return bundleNameRe.MatchString(name)
}
