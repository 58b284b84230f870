package rules

import (
	"github.com/coecms/mdssprep/pkg/models"
)

// SymlinkRule skips symbolic links. Links are never followed or
// archived; a dangling link gets its own reason so it can be repaired
// before submission.
type SymlinkRule struct {
	*BaseRule
	isDangling func(path string) bool
}

// NewSymlinkRule creates a new symlink rule. isDangling reports
// whether the link target is unresolvable.
func NewSymlinkRule(isDangling func(path string) bool) *SymlinkRule {
	return &SymlinkRule{
		BaseRule:   NewBaseRule("symlink", 70, []models.EntryKind{models.KindSymlink}),
		isDangling: isDangling,
	}
}

// Evaluate skips every symlink, distinguishing broken links.
func (r *SymlinkRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if r.isDangling != nil && r.isDangling(entry.Path) {
		return models.Skipped(r.Name(), "broken symlink"), true
	}
	return models.Skipped(r.Name(), "symbolic link"), true
}
