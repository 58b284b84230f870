package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coecms/mdssprep/internal/config"
	"github.com/coecms/mdssprep/internal/manifest"
	"github.com/coecms/mdssprep/pkg/models"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		GraceWindow:    24 * time.Hour,
		MaxSize:        "5T",
		MinFileSize:    "50M",
		MaxArchiveSize: "10G",
		Compress:       "gz",
		Exclude:        []string{".git"},
		ManifestName:   ".mdssprep.yaml",
	}
}

func writeAged(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}
}

func TestScanGraceWindow(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a.txt"), "stable data", 48*time.Hour)
	writeAged(t, filepath.Join(root, "b.tmp"), "fresh data", time.Second)

	s := NewScanner(testConfig(), zap.NewNop())
	result, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	ready := result.ReadyPaths()
	if len(ready) != 1 || filepath.Base(ready[0]) != "a.txt" {
		t.Errorf("ReadyPaths() = %v, want just a.txt", ready)
	}

	notReady := result.ByState[models.StateNotReady]
	if len(notReady) != 1 {
		t.Fatalf("NotReady count = %d, want 1", len(notReady))
	}
	if notReady[0].Entry.Name != "b.tmp" {
		t.Errorf("NotReady entry = %q, want b.tmp", notReady[0].Entry.Name)
	}
	if notReady[0].Classification.Rule != "grace-window" {
		t.Errorf("NotReady rule = %q, want grace-window", notReady[0].Classification.Rule)
	}
}

func TestScanEveryEntryOnce(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub", "deep"), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeAged(t, filepath.Join(root, "a.txt"), "a", 48*time.Hour)
	writeAged(t, filepath.Join(root, "sub", "b.txt"), "b", 48*time.Hour)
	writeAged(t, filepath.Join(root, "sub", "deep", "c.txt"), "c", 48*time.Hour)

	s := NewScanner(testConfig(), zap.NewNop())
	result, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	seen := map[string]int{}
	for _, ce := range result.Entries {
		seen[ce.Entry.RelativePath]++
	}
	for rel, n := range seen {
		if n != 1 {
			t.Errorf("Entry %q classified %d times, want exactly once", rel, n)
		}
	}
	// 3 files + 2 directories.
	if len(result.Entries) != 5 {
		t.Errorf("Scan produced %d entries, want 5", len(result.Entries))
	}
}

func TestScanDeterministic(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "z.txt"), "z", 48*time.Hour)
	writeAged(t, filepath.Join(root, "a.txt"), "a", 48*time.Hour)
	writeAged(t, filepath.Join(root, "m.txt"), "m", 48*time.Hour)

	first, err := NewScanner(testConfig(), zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	second, err := NewScanner(testConfig(), zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("Entry counts differ: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		a, b := first.Entries[i], second.Entries[i]
		if a.Entry.Path != b.Entry.Path {
			t.Fatalf("Order differs at %d: %q vs %q", i, a.Entry.Path, b.Entry.Path)
		}
		if a.Classification.State != b.Classification.State {
			t.Errorf("Classification differs for %q: %v vs %v",
				a.Entry.Path, a.Classification.State, b.Classification.State)
		}
	}
}

func TestScanDirectoriesSkipped(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	result, err := NewScanner(testConfig(), zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	skipped := result.ByState[models.StateSkipped]
	if len(skipped) != 1 {
		t.Fatalf("Skipped count = %d, want 1", len(skipped))
	}
	if skipped[0].Classification.Rule != "kind" || skipped[0].Classification.Reason != "directory" {
		t.Errorf("Directory classification = %+v, want kind/directory", skipped[0].Classification)
	}
}

func TestScanSymlinks(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "target.txt"), "t", 48*time.Hour)
	if err := os.Symlink(filepath.Join(root, "target.txt"), filepath.Join(root, "good")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "absent"), filepath.Join(root, "bad")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	result, err := NewScanner(testConfig(), zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	reasons := map[string]string{}
	for _, ce := range result.ByState[models.StateSkipped] {
		reasons[ce.Entry.Name] = ce.Classification.Reason
	}

	if reasons["good"] != "symbolic link" {
		t.Errorf("Healthy link reason = %q, want %q", reasons["good"], "symbolic link")
	}
	if reasons["bad"] != "broken symlink" {
		t.Errorf("Dangling link reason = %q, want %q", reasons["bad"], "broken symlink")
	}
	if len(result.ReadyPaths()) != 1 {
		t.Errorf("ReadyPaths() = %v, want just the target", result.ReadyPaths())
	}
}

func TestScanEmptyAndOversized(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "empty.dat"), "", 48*time.Hour)
	writeAged(t, filepath.Join(root, "big.dat"), "0123456789", 48*time.Hour)

	cfg := testConfig()
	cfg.MaxSize = "5" // bytes
	result, err := NewScanner(cfg, zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	rules := map[string]string{}
	for _, ce := range result.ByState[models.StateNotReady] {
		rules[ce.Entry.Name] = ce.Classification.Rule
	}

	if rules["empty.dat"] != "empty-file" {
		t.Errorf("empty.dat rule = %q, want empty-file", rules["empty.dat"])
	}
	if rules["big.dat"] != "max-size" {
		t.Errorf("big.dat rule = %q, want max-size", rules["big.dat"])
	}

	cfg = testConfig()
	cfg.AllowEmpty = true
	result, err = NewScanner(cfg, zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(result.ReadyPaths()) != 2 {
		t.Errorf("With allow_empty ReadyPaths() = %v, want both files", result.ReadyPaths())
	}
}

func TestScanExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "keep.txt"), "k", 48*time.Hour)
	writeAged(t, filepath.Join(root, "drop.tmp"), "d", 48*time.Hour)
	writeAged(t, filepath.Join(root, "force.tmp"), "f", 48*time.Hour)

	cfg := testConfig()
	cfg.ExcludePatterns = []string{"*.tmp"}
	cfg.IncludePatterns = []string{"force.*"}

	result, err := NewScanner(cfg, zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	states := map[string]models.State{}
	for _, ce := range result.Entries {
		states[ce.Entry.Name] = ce.Classification.State
	}

	if states["keep.txt"] != models.StateReady {
		t.Errorf("keep.txt state = %v, want ready", states["keep.txt"])
	}
	if states["drop.tmp"] != models.StateSkipped {
		t.Errorf("drop.tmp state = %v, want skipped", states["drop.tmp"])
	}
	if states["force.tmp"] != models.StateReady {
		t.Errorf("force.tmp state = %v, want ready (include overrides exclude)", states["force.tmp"])
	}
}

func TestScanSkipsOwnManifest(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a.txt"), "stable data", 48*time.Hour)

	// An aged manifest from an earlier prep run must never become an
	// archive candidate itself.
	m := manifest.New(root, filepath.Join(root, ".mdssprep.yaml"))
	require := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	require(m.Add(filepath.Join(root, "a.txt"), ""))
	require(m.Save())
	old := time.Now().Add(-48 * time.Hour)
	require(os.Chtimes(m.Path(), old, old))

	s := NewScanner(testConfig(), zap.NewNop())
	result, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	for _, path := range result.ReadyPaths() {
		if filepath.Base(path) == ".mdssprep.yaml" {
			t.Fatalf("manifest file classified ready: %s", path)
		}
	}

	var c models.Classification
	for _, ce := range result.Entries {
		if ce.Entry.Name == ".mdssprep.yaml" {
			c = ce.Classification
		}
	}
	if c.State != models.StateSkipped || c.Rule != "own-archive" {
		t.Errorf("manifest classification = %+v, want skipped by own-archive", c)
	}
}

func TestScanCountsUnreadableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	writeAged(t, filepath.Join(root, "ok.txt"), "x", 48*time.Hour)
	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	result, err := NewScanner(testConfig(), zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if result.Stats.StatErrors != 1 {
		t.Errorf("StatErrors = %d, want 1", result.Stats.StatErrors)
	}
	if len(result.Stats.ErrorPaths) != 1 || result.Stats.ErrorPaths[0] != locked {
		t.Errorf("ErrorPaths = %v, want [%s]", result.Stats.ErrorPaths, locked)
	}
	if len(result.ReadyPaths()) != 1 {
		t.Errorf("ReadyPaths() = %v, want just ok.txt", result.ReadyPaths())
	}
}

func TestScanMissingRoot(t *testing.T) {
	s := NewScanner(testConfig(), zap.NewNop())
	if _, err := s.Scan(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Scan(missing root) error = nil, want error")
	}
}

func TestScanStatistics(t *testing.T) {
	root := t.TempDir()
	writeAged(t, filepath.Join(root, "a.txt"), "12345", 48*time.Hour)
	writeAged(t, filepath.Join(root, "b.txt"), "1234567890", 48*time.Hour)
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	result, err := NewScanner(testConfig(), zap.NewNop()).Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	stats := result.Stats
	if stats.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", stats.TotalFiles)
	}
	if stats.TotalDirs != 1 {
		t.Errorf("TotalDirs = %d, want 1", stats.TotalDirs)
	}
	if stats.ReadyFiles != 2 {
		t.Errorf("ReadyFiles = %d, want 2", stats.ReadyFiles)
	}
	if stats.ReadySize != 15 {
		t.Errorf("ReadySize = %d, want 15", stats.ReadySize)
	}
	if result.Duration < 0 {
		t.Errorf("Duration = %v, want non-negative", result.Duration)
	}
}
