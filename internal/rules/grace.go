package rules

import (
	"fmt"
	"time"

	"github.com/coecms/mdssprep/pkg/models"
)

// GraceRule holds back files modified within the grace window, so
// in-progress writes are never archived mid-flight.
type GraceRule struct {
	*BaseRule
	window time.Duration
	now    func() time.Time
}

// NewGraceRule creates a new grace-window rule. now is injectable for
// tests; pass nil for time.Now.
func NewGraceRule(window time.Duration, now func() time.Time) *GraceRule {
	if now == nil {
		now = time.Now
	}
	return &GraceRule{
		BaseRule: NewBaseRule("grace-window", 60, []models.EntryKind{models.KindFile}),
		window:   window,
		now:      now,
	}
}

// Evaluate marks recently modified files as not ready.
func (r *GraceRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if r.window <= 0 {
		return models.Classification{}, false
	}

	age := r.now().Sub(entry.ModTime)
	if age < r.window {
		return models.NotReady(r.Name(),
			fmt.Sprintf("recently modified (%s ago, grace window %s)", age.Round(time.Second), r.window)), true
	}

	return models.Classification{}, false
}
