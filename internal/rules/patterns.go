package rules

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/coecms/mdssprep/pkg/models"
)

// PatternRule skips files matching configured exclude globs. Include
// globs override excludes: a file matching both is kept. Patterns are
// matched against the base name and, when they contain a separator,
// against the slash-separated relative path.
type PatternRule struct {
	*BaseRule
	include []string
	exclude []string
}

// NewPatternRule creates a new include/exclude pattern rule
func NewPatternRule(include, exclude []string) *PatternRule {
	return &PatternRule{
		BaseRule: NewBaseRule("pattern", 100, []models.EntryKind{models.KindFile}),
		include:  include,
		exclude:  exclude,
	}
}

// Evaluate skips entries matching an exclude pattern unless an include
// pattern also matches.
func (r *PatternRule) Evaluate(entry *models.Entry) (models.Classification, bool) {
	if MatchAny(r.include, entry) {
		return models.Classification{}, false
	}

	if pattern, ok := matchFirst(r.exclude, entry); ok {
		return models.Skipped(r.Name(), fmt.Sprintf("matched exclude pattern %q", pattern)), true
	}

	return models.Classification{}, false
}

// MatchAny reports whether any of the glob patterns matches the entry.
func MatchAny(patterns []string, entry *models.Entry) bool {
	_, ok := matchFirst(patterns, entry)
	return ok
}

func matchFirst(patterns []string, entry *models.Entry) (string, bool) {
	rel := path.Clean(filepath.ToSlash(entry.RelativePath))
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, entry.Name); err == nil && ok {
			return pattern, true
		}
		if ok, err := path.Match(pattern, rel); err == nil && ok {
			return pattern, true
		}
	}
	return "", false
}
