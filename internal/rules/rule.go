package rules

import (
	"github.com/coecms/mdssprep/pkg/models"
)

// Rule is the interface all readiness rules implement. Rules are
// evaluated in a fixed registration order; the first rule that decides
// an entry wins.
type Rule interface {
	// Name returns the rule name
	Name() string

	// Priority returns the rule priority (higher = earlier evaluation)
	Priority() int

	// Kinds returns the entry kinds this rule applies to
	Kinds() []models.EntryKind

	// Evaluate judges an entry. The boolean reports whether the rule
	// decided the entry; undecided entries fall through to the next
	// rule.
	Evaluate(entry *models.Entry) (models.Classification, bool)
}

// BaseRule provides common functionality for rules
type BaseRule struct {
	name     string
	priority int
	kinds    []models.EntryKind
}

// NewBaseRule creates a new base rule
func NewBaseRule(name string, priority int, kinds []models.EntryKind) *BaseRule {
	return &BaseRule{
		name:     name,
		priority: priority,
		kinds:    kinds,
	}
}

// Name returns the rule name
func (r *BaseRule) Name() string {
	return r.name
}

// Priority returns the rule priority
func (r *BaseRule) Priority() int {
	return r.priority
}

// Kinds returns the entry kinds this rule applies to
func (r *BaseRule) Kinds() []models.EntryKind {
	return r.kinds
}

// AppliesTo checks if this rule applies to the given entry kind
func (r *BaseRule) AppliesTo(kind models.EntryKind) bool {
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}
