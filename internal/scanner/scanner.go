package scanner

import (
	"fmt"
	"time"

	"github.com/coecms/mdssprep/internal/config"
	"github.com/coecms/mdssprep/internal/filesystem"
	"github.com/coecms/mdssprep/internal/manifest"
	"github.com/coecms/mdssprep/internal/rules"
	"github.com/coecms/mdssprep/pkg/models"
	"go.uber.org/zap"
)

// Scanner is the readiness scanner engine. It walks a directory tree
// once, synchronously and in lexicographic order, classifies every
// entry against the registered rules, and produces a ScanResult. The
// scan never writes to the filesystem.
type Scanner struct {
	config   *config.Config
	logger   *zap.Logger
	rules    []rules.Rule
	walker   *filesystem.Walker
	manifest *manifest.Manifest

	// Version stamped into the result; set by the CLI.
	Version string

	// Now is injectable for deterministic tests; nil means time.Now.
	Now func() time.Time
}

// NewScanner creates a new scanner instance
func NewScanner(cfg *config.Config, logger *zap.Logger) *Scanner {
	return &Scanner{
		config:  cfg,
		logger:  logger,
		Version: "dev",
	}
}

// SetManifest attaches a prep manifest, enabling the already-archived
// rule.
func (s *Scanner) SetManifest(m *manifest.Manifest) {
	s.manifest = m
}

// RegisterRule appends a rule to the evaluation order.
func (s *Scanner) RegisterRule(r rules.Rule) {
	s.rules = append(s.rules, r)
	s.logger.Info("Registered rule",
		zap.String("name", r.Name()),
		zap.Int("priority", r.Priority()))
}

// Rules returns the registered rules in evaluation order.
func (s *Scanner) Rules() []rules.Rule {
	return s.rules
}

// Scan classifies every entry under root and returns the result. A
// root that cannot be accessed is a fatal error; any other per-entry
// failure is downgraded to a Skipped classification.
func (s *Scanner) Scan(root string) (*models.ScanResult, error) {
	s.logger.Info("Starting scan", zap.String("path", root))

	result := models.NewScanResult(root)
	result.StartTime = s.now()
	result.Version = s.Version

	if len(s.rules) == 0 {
		s.initRules()
	}

	s.walker = filesystem.NewWalker(s.config.Exclude, s.logger)
	// Listing failures inside already-emitted directories still count
	// as access errors in the report.
	s.walker.OnReadError = func(path string, err error) {
		result.Stats.StatErrors++
		result.Stats.ErrorPaths = append(result.Stats.ErrorPaths, path)
	}

	err := s.walker.Walk(root, func(entry *models.Entry) error {
		result.AddEntry(entry, s.classify(entry))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result.EndTime = s.now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	s.logger.Info("Scan completed",
		zap.Duration("duration", result.Duration),
		zap.Int("ready", result.Stats.ReadyFiles),
		zap.Int("not_ready", result.Stats.NotReadyFiles),
		zap.Int("skipped", result.Stats.SkippedFiles))

	return result, nil
}

// initRules registers the readiness rules in their fixed evaluation
// order. The order is part of the contract: the first decisive rule
// wins, so pattern excludes mask everything, and grace-window masks
// the size checks.
func (s *Scanner) initRules() {
	s.RegisterRule(rules.NewPatternRule(s.config.IncludePatterns, s.config.ExcludePatterns))
	s.RegisterRule(rules.NewOwnArchiveRule(s.config.ManifestName))
	if s.manifest != nil {
		s.RegisterRule(rules.NewArchivedRule(s.manifest))
	}
	s.RegisterRule(rules.NewSymlinkRule(filesystem.IsDanglingSymlink))
	s.RegisterRule(rules.NewGraceRule(s.config.GraceWindow, s.Now))
	s.RegisterRule(rules.NewEmptyRule(s.config.AllowEmpty))
	s.RegisterRule(rules.NewMaxSizeRule(s.config.MaxSizeBytes()))
}

// classify runs an entry through the rules and returns its verdict.
func (s *Scanner) classify(entry *models.Entry) models.Classification {
	if entry.Err != nil {
		return models.Skipped("access", entry.Err.Error())
	}

	if entry.Kind == models.KindDir {
		return models.Skipped("kind", "directory")
	}

	for _, rule := range s.rules {
		if !s.shouldRunRule(rule, entry.Kind) {
			continue
		}

		if c, decided := rule.Evaluate(entry); decided {
			s.logger.Debug("Rule decided entry",
				zap.String("rule", rule.Name()),
				zap.String("path", entry.Path),
				zap.String("state", string(c.State)),
				zap.String("reason", c.Reason))
			return c
		}
	}

	return models.Ready()
}

// shouldRunRule checks if a rule applies to an entry kind.
func (s *Scanner) shouldRunRule(r rules.Rule, kind models.EntryKind) bool {
	for _, k := range r.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
