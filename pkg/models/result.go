package models

import "time"

// ClassifiedEntry pairs an entry with its verdict.
type ClassifiedEntry struct {
	Entry          *Entry         `json:"entry" yaml:"entry"`
	Classification Classification `json:"classification" yaml:"classification"`
}

// ScanResult contains the complete result of one scan invocation.
// Entries appear exactly once each, in walk order, so repeated scans
// of an unchanged tree produce identical results. The result is
// read-only once the scan finishes.
type ScanResult struct {
	// Summary
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	ScanPath  string        `json:"scan_path" yaml:"scan_path"`
	Version   string        `json:"version" yaml:"version"`

	// Every entry in walk order
	Entries []*ClassifiedEntry `json:"entries" yaml:"entries"`

	// Views by state, filled as entries are added
	ByState map[State][]*ClassifiedEntry `json:"-" yaml:"-"`

	// Statistics
	Stats *ScanStatistics `json:"statistics" yaml:"statistics"`
}

// ScanStatistics contains aggregate counters for one scan.
type ScanStatistics struct {
	TotalFiles    int   `json:"total_files" yaml:"total_files"`
	TotalDirs     int   `json:"total_dirs" yaml:"total_dirs"`
	TotalSymlinks int   `json:"total_symlinks" yaml:"total_symlinks"`
	ReadyFiles    int   `json:"ready_files" yaml:"ready_files"`
	NotReadyFiles int   `json:"not_ready_files" yaml:"not_ready_files"`
	SkippedFiles  int   `json:"skipped_files" yaml:"skipped_files"`
	ReadySize     int64 `json:"ready_size" yaml:"ready_size"`
	TotalSize     int64 `json:"total_size" yaml:"total_size"`
	StatErrors    int   `json:"stat_errors" yaml:"stat_errors"`

	// Paths that could not be snapshotted cleanly
	ErrorPaths []string `json:"error_paths,omitempty" yaml:"error_paths,omitempty"`
}

// NewScanResult creates an empty result for one invocation.
func NewScanResult(path string) *ScanResult {
	return &ScanResult{
		ScanPath: path,
		ByState:  make(map[State][]*ClassifiedEntry),
		Stats:    &ScanStatistics{},
	}
}

// AddEntry appends a classified entry and updates the state views and
// statistics.
func (r *ScanResult) AddEntry(e *Entry, c Classification) {
	ce := &ClassifiedEntry{Entry: e, Classification: c}
	r.Entries = append(r.Entries, ce)

	if r.ByState == nil {
		r.ByState = make(map[State][]*ClassifiedEntry)
	}
	r.ByState[c.State] = append(r.ByState[c.State], ce)

	if r.Stats == nil {
		r.Stats = &ScanStatistics{}
	}
	r.updateStats(ce)
}

func (r *ScanResult) updateStats(ce *ClassifiedEntry) {
	e := ce.Entry
	switch e.Kind {
	case KindDir:
		r.Stats.TotalDirs++
	case KindSymlink:
		r.Stats.TotalSymlinks++
	case KindFile:
		r.Stats.TotalFiles++
		r.Stats.TotalSize += e.Size
		switch ce.Classification.State {
		case StateReady:
			r.Stats.ReadyFiles++
			r.Stats.ReadySize += e.Size
		case StateNotReady:
			r.Stats.NotReadyFiles++
		case StateSkipped:
			r.Stats.SkippedFiles++
		}
	}

	if e.Err != nil {
		r.Stats.StatErrors++
		r.Stats.ErrorPaths = append(r.Stats.ErrorPaths, e.Path)
	}
}

// ReadyPaths returns the archive-candidate paths in walk order,
// suitable for piping to the mdss submission command.
func (r *ScanResult) ReadyPaths() []string {
	ready := r.ByState[StateReady]
	paths := make([]string, 0, len(ready))
	for _, ce := range ready {
		paths = append(paths, ce.Entry.Path)
	}
	return paths
}

// ReadyEntries returns the classified file entries judged ready.
func (r *ScanResult) ReadyEntries() []*ClassifiedEntry {
	return r.ByState[StateReady]
}

// Rejected returns every not-ready and skipped entry, in walk order.
func (r *ScanResult) Rejected() []*ClassifiedEntry {
	var out []*ClassifiedEntry
	for _, ce := range r.Entries {
		if ce.Classification.State != StateReady {
			out = append(out, ce)
		}
	}
	return out
}
