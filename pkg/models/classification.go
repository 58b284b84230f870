package models

// State is the archive-readiness verdict for a single entry.
type State string

const (
	// StateReady marks an entry safe to hand to the mdss submission
	// tool.
	StateReady State = "ready"
	// StateNotReady marks an entry that may become ready later
	// (in-progress write, empty file, oversized file).
	StateNotReady State = "not_ready"
	// StateSkipped marks an entry the scanner will never submit
	// (excluded, already archived, symlink, unreadable).
	StateSkipped State = "skipped"
)

// Classification is the verdict attached to an Entry after rule
// evaluation.
type Classification struct {
	State  State  `json:"state" yaml:"state"`
	Rule   string `json:"rule,omitempty" yaml:"rule,omitempty"`     // Name of the rule that decided
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"` // Human-readable reason, empty for ready
}

// Ready returns the classification for an entry no rule rejected.
func Ready() Classification {
	return Classification{State: StateReady}
}

// NotReady returns a not-ready classification with the deciding rule
// and reason.
func NotReady(rule, reason string) Classification {
	return Classification{State: StateNotReady, Rule: rule, Reason: reason}
}

// Skipped returns a skipped classification with the deciding rule and
// reason.
func Skipped(rule, reason string) Classification {
	return Classification{State: StateSkipped, Rule: rule, Reason: reason}
}

// GetStatePriority returns numeric ordering for states in reports
// (ready first).
func GetStatePriority(s State) int {
	switch s {
	case StateReady:
		return 3
	case StateNotReady:
		return 2
	case StateSkipped:
		return 1
	default:
		return 0
	}
}
