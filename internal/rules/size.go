package rules

import (
	"fmt"

	"github.com/coecms/mdssprep/pkg/models"
)

// EmptyRule holds back zero-length files unless the policy explicitly
// allows them.
type EmptyRule struct {
	*BaseRule
	allowEmpty bool
}

// NewEmptyRule creates a new empty-file rule
func NewEmptyRule(allowEmpty bool) *EmptyRule {
	return &EmptyRule{
		BaseRule:   NewBaseRule("empty-file", 50, []models.EntryKind{models.KindFile}),
		allowEmpty: allowEmpty,
	}
}

// Evaluate marks zero-length files as not ready.
func (r *EmptyRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if entry.Size == 0 && !r.allowEmpty {
		return models.NotReady(r.Name(), "empty file"), true
	}
	return models.Classification{}, false
}

// MaxSizeRule holds back files too large for a single mdss submission.
type MaxSizeRule struct {
	*BaseRule
	maxSize int64
}

// NewMaxSizeRule creates a new maximum-size rule
func NewMaxSizeRule(maxSize int64) *MaxSizeRule {
	return &MaxSizeRule{
		BaseRule: NewBaseRule("max-size", 40, []models.EntryKind{models.KindFile}),
		maxSize:  maxSize,
	}
}

// Evaluate marks oversized files as not ready.
func (r *MaxSizeRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if r.maxSize > 0 && entry.Size > r.maxSize {
		return models.NotReady(r.Name(),
			fmt.Sprintf("exceeds maximum archive size (%d > %d bytes)", entry.Size, r.maxSize)), true
	}
	return models.Classification{}, false
}
