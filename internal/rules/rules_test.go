package rules

import (
	"testing"
	"time"

	"github.com/coecms/mdssprep/pkg/models"
)

func fileEntry(name, rel string, size int64, mtime time.Time) *models.Entry {
	return &models.Entry{
		Path:         "/data/" + rel,
		RelativePath: rel,
		Name:         name,
		Kind:         models.KindFile,
		Size:         size,
		ModTime:      mtime,
	}
}

func TestPatternRule(t *testing.T) {
	tests := []struct {
		name        string
		include     []string
		exclude     []string
		entryName   string
		rel         string
		wantDecided bool
	}{
		{"No patterns", nil, nil, "a.txt", "a.txt", false},
		{"Exclude by name", nil, []string{"*.tmp"}, "run.tmp", "run.tmp", true},
		{"Exclude by relative path", nil, []string{"logs/*"}, "out.log", "logs/out.log", true},
		{"Exclude does not match", nil, []string{"*.tmp"}, "a.txt", "a.txt", false},
		{"Include overrides exclude", []string{"*.tmp"}, []string{"*.tmp"}, "keep.tmp", "keep.tmp", false},
		{"Nested name matches base pattern", nil, []string{"*.bak"}, "old.bak", "sub/old.bak", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewPatternRule(tt.include, tt.exclude)
			entry := fileEntry(tt.entryName, tt.rel, 100, time.Now())

			c, decided := rule.Evaluate(entry)
			if decided != tt.wantDecided {
				t.Fatalf("Evaluate() decided = %v, want %v", decided, tt.wantDecided)
			}
			if decided && c.State != models.StateSkipped {
				t.Errorf("Evaluate() state = %v, want %v", c.State, models.StateSkipped)
			}
		})
	}
}

func TestOwnArchiveRule(t *testing.T) {
	tests := []struct {
		name        string
		entryName   string
		wantDecided bool
	}{
		{"Compressed bundle", "archive_4bf3a1c09de2_000.tar.gz", true},
		{"Plain bundle", "archive_4bf3a1c09de2_017.tar", true},
		{"Wrong hash length", "archive_4bf3_000.tar.gz", false},
		{"Wrong counter width", "archive_4bf3a1c09de2_17.tar", false},
		{"Ordinary tarball", "results.tar.gz", false},
	}

	rule := NewOwnArchiveRule("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := fileEntry(tt.entryName, tt.entryName, 100, time.Now())
			_, decided := rule.Evaluate(entry)
			if decided != tt.wantDecided {
				t.Errorf("Evaluate(%q) decided = %v, want %v", tt.entryName, decided, tt.wantDecided)
			}
			if IsBundleName(tt.entryName) != tt.wantDecided {
				t.Errorf("IsBundleName(%q) = %v, want %v", tt.entryName, !tt.wantDecided, tt.wantDecided)
			}
		})
	}
}

func TestOwnArchiveRuleManifest(t *testing.T) {
	rule := NewOwnArchiveRule(".mdssprep.yaml")

	entry := fileEntry(".mdssprep.yaml", ".mdssprep.yaml", 100, time.Now())
	c, decided := rule.Evaluate(entry)
	if !decided {
		t.Fatal("Evaluate(manifest) decided = false, want true")
	}
	if c.State != models.StateSkipped {
		t.Errorf("Evaluate(manifest) state = %v, want %v", c.State, models.StateSkipped)
	}
	if c.Reason != "mdssprep manifest" {
		t.Errorf("Evaluate(manifest) reason = %q, want %q", c.Reason, "mdssprep manifest")
	}

	// The manifest in a subdirectory is a different tree's manifest.
	nested := fileEntry(".mdssprep.yaml", "sub/.mdssprep.yaml", 100, time.Now())
	if _, decided := rule.Evaluate(nested); !decided {
		t.Error("Evaluate(nested manifest) decided = false, want true (matched by name)")
	}

	other := fileEntry("data.yaml", "data.yaml", 100, time.Now())
	if _, decided := rule.Evaluate(other); decided {
		t.Error("Evaluate(ordinary yaml) decided = true, want false")
	}

	disabled := NewOwnArchiveRule("")
	if _, decided := disabled.Evaluate(entry); decided {
		t.Error("Evaluate with empty manifest name decided = true, want false")
	}
}

// fakeIndex is a ManifestIndex backed by a map for testing.
type fakeIndex struct {
	records map[string][2]int64 // path -> {size, mtime}
}

func (f *fakeIndex) Lookup(path string) (int64, int64, bool) {
	r, ok := f.records[path]
	return r[0], r[1], ok
}

func TestArchivedRule(t *testing.T) {
	mtime := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	idx := &fakeIndex{records: map[string][2]int64{
		"/data/done.nc": {4096, mtime.Unix()},
	}}

	tests := []struct {
		name        string
		rule        *ArchivedRule
		entry       *models.Entry
		wantDecided bool
	}{
		{"Unchanged file is skipped", NewArchivedRule(idx), fileEntry("done.nc", "done.nc", 4096, mtime), true},
		{"Size changed", NewArchivedRule(idx), fileEntry("done.nc", "done.nc", 8192, mtime), false},
		{"Mtime changed", NewArchivedRule(idx), fileEntry("done.nc", "done.nc", 4096, mtime.Add(time.Hour)), false},
		{"Not in manifest", NewArchivedRule(idx), fileEntry("new.nc", "new.nc", 4096, mtime), false},
		{"Nil manifest", NewArchivedRule(nil), fileEntry("done.nc", "done.nc", 4096, mtime), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, decided := tt.rule.Evaluate(tt.entry)
			if decided != tt.wantDecided {
				t.Fatalf("Evaluate() decided = %v, want %v", decided, tt.wantDecided)
			}
			if decided && c.State != models.StateSkipped {
				t.Errorf("Evaluate() state = %v, want %v", c.State, models.StateSkipped)
			}
		})
	}
}

func TestSymlinkRule(t *testing.T) {
	tests := []struct {
		name       string
		isDangling func(string) bool
		wantReason string
	}{
		{"Healthy link", func(string) bool { return false }, "symbolic link"},
		{"Broken link", func(string) bool { return true }, "broken symlink"},
		{"No probe", nil, "symbolic link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewSymlinkRule(tt.isDangling)
			entry := &models.Entry{Path: "/data/link", Name: "link", Kind: models.KindSymlink}

			c, decided := rule.Evaluate(entry)
			if !decided {
				t.Fatal("Evaluate() decided = false, want true")
			}
			if c.State != models.StateSkipped {
				t.Errorf("Evaluate() state = %v, want %v", c.State, models.StateSkipped)
			}
			if c.Reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", c.Reason, tt.wantReason)
			}
		})
	}
}

func TestGraceRule(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name        string
		window      time.Duration
		age         time.Duration
		wantDecided bool
	}{
		{"Modified one second ago", 24 * time.Hour, time.Second, true},
		{"Modified just inside window", 24 * time.Hour, 23 * time.Hour, true},
		{"Modified exactly at window", 24 * time.Hour, 24 * time.Hour, false},
		{"Modified two days ago", 24 * time.Hour, 48 * time.Hour, false},
		{"Zero window disables rule", 0, time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewGraceRule(tt.window, clock)
			entry := fileEntry("a.txt", "a.txt", 100, now.Add(-tt.age))

			c, decided := rule.Evaluate(entry)
			if decided != tt.wantDecided {
				t.Fatalf("Evaluate() decided = %v, want %v", decided, tt.wantDecided)
			}
			if decided && c.State != models.StateNotReady {
				t.Errorf("Evaluate() state = %v, want %v", c.State, models.StateNotReady)
			}
		})
	}
}

func TestEmptyRule(t *testing.T) {
	tests := []struct {
		name        string
		allowEmpty  bool
		size        int64
		wantDecided bool
	}{
		{"Empty file rejected", false, 0, true},
		{"Empty file allowed", true, 0, false},
		{"Non-empty file", false, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewEmptyRule(tt.allowEmpty)
			entry := fileEntry("a.txt", "a.txt", tt.size, time.Now())

			c, decided := rule.Evaluate(entry)
			if decided != tt.wantDecided {
				t.Fatalf("Evaluate() decided = %v, want %v", decided, tt.wantDecided)
			}
			if decided && c.State != models.StateNotReady {
				t.Errorf("Evaluate() state = %v, want %v", c.State, models.StateNotReady)
			}
		})
	}
}

func TestMaxSizeRule(t *testing.T) {
	tests := []struct {
		name        string
		maxSize     int64
		size        int64
		wantDecided bool
	}{
		{"Under the cap", 1000, 999, false},
		{"Exactly at the cap", 1000, 1000, false},
		{"Over the cap", 1000, 1001, true},
		{"Zero cap disables rule", 0, 1 << 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := NewMaxSizeRule(tt.maxSize)
			entry := fileEntry("big.dat", "big.dat", tt.size, time.Now())

			c, decided := rule.Evaluate(entry)
			if decided != tt.wantDecided {
				t.Fatalf("Evaluate() decided = %v, want %v", decided, tt.wantDecided)
			}
			if decided && c.State != models.StateNotReady {
				t.Errorf("Evaluate() state = %v, want %v", c.State, models.StateNotReady)
			}
		})
	}
}
