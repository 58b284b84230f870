package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the prep policy and tool settings
type Config struct {
	// Readiness policy
	GraceWindow time.Duration `mapstructure:"grace_window"` // files modified within this window are not ready
	AllowEmpty  bool          `mapstructure:"allow_empty"`  // allow zero-length files as candidates
	MaxSize     string        `mapstructure:"max_size"`     // maximum size for a single candidate

	// Bundling policy
	MinFileSize    string `mapstructure:"min_file_size"`    // files below this size are bundled together
	MaxArchiveSize string `mapstructure:"max_archive_size"` // size cap for one bundle
	Compress       string `mapstructure:"compress"`         // bundle compression: gz or none

	// Selection
	Exclude         []string `mapstructure:"exclude"`          // directory names to prune
	ExcludePatterns []string `mapstructure:"exclude_patterns"` // glob patterns to skip
	IncludePatterns []string `mapstructure:"include_patterns"` // glob patterns that override excludes and size limits

	// Manifest
	ManifestName string `mapstructure:"manifest_name"` // manifest file name inside the scanned root

	// Report settings
	ReportFormat string `mapstructure:"report_format"` // text, json, yaml
	OutputFile   string `mapstructure:"output_file"`   // report output path

	// Prep behaviour
	DryRun         bool `mapstructure:"dry_run"`         // plan bundles without writing
	RemoveOriginal bool `mapstructure:"remove_original"` // delete originals after verified bundling
}

// Size units used by the default policy.
const (
	oneMeg = int64(1) << 20
	oneGig = int64(1) << 30
	oneTB  = int64(1) << 40
)

// LoadConfig loads configuration from environment variables and defaults
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set defaults. Bundling thresholds follow the mdss site policy:
	// files under 50M go into bundles, bundles cap at 10G, single
	// candidates cap at 5T.
	v.SetDefault("grace_window", "24h")
	v.SetDefault("allow_empty", false)
	v.SetDefault("max_size", "5T")
	v.SetDefault("min_file_size", "50M")
	v.SetDefault("max_archive_size", "10G")
	v.SetDefault("compress", "gz")
	v.SetDefault("exclude", []string{".git", ".svn", ".hg"})
	v.SetDefault("manifest_name", ".mdssprep.yaml")
	v.SetDefault("report_format", "")
	v.SetDefault("dry_run", false)
	v.SetDefault("remove_original", false)

	// Read environment variables
	v.SetEnvPrefix("MDSSPREP")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the policy values are parseable and coherent.
func (c *Config) Validate() error {
	if c.GraceWindow < 0 {
		return fmt.Errorf("grace_window must not be negative")
	}

	minSize, err := ParseSize(c.MinFileSize)
	if err != nil {
		return fmt.Errorf("invalid min_file_size: %w", err)
	}
	maxArchive, err := ParseSize(c.MaxArchiveSize)
	if err != nil {
		return fmt.Errorf("invalid max_archive_size: %w", err)
	}
	maxSize, err := ParseSize(c.MaxSize)
	if err != nil {
		return fmt.Errorf("invalid max_size: %w", err)
	}

	if minSize > maxArchive {
		return fmt.Errorf("min_file_size (%s) exceeds max_archive_size (%s)", c.MinFileSize, c.MaxArchiveSize)
	}
	if maxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}

	switch c.Compress {
	case "", "gz", "none":
	default:
		return fmt.Errorf("compress must be gz or none (got: %s)", c.Compress)
	}

	return nil
}

// MinFileSizeBytes returns the bundling threshold in bytes.
func (c *Config) MinFileSizeBytes() int64 {
	n, err := ParseSize(c.MinFileSize)
	if err != nil {
		return 50 * oneMeg
	}
	return n
}

// MaxArchiveSizeBytes returns the bundle size cap in bytes.
func (c *Config) MaxArchiveSizeBytes() int64 {
	n, err := ParseSize(c.MaxArchiveSize)
	if err != nil {
		return 10 * oneGig
	}
	return n
}

// MaxSizeBytes returns the single-candidate size cap in bytes.
func (c *Config) MaxSizeBytes() int64 {
	n, err := ParseSize(c.MaxSize)
	if err != nil {
		return 5 * oneTB
	}
	return n
}

// ParseSize parses size strings like "650K", "50M", "10G", "5T" to
// bytes. A bare number is taken as bytes.
func ParseSize(sizeStr string) (int64, error) {
	if len(sizeStr) == 0 {
		return 0, fmt.Errorf("empty size")
	}

	last := sizeStr[len(sizeStr)-1]
	var multiplier int64 = 1

	switch last {
	case 'K', 'k':
		multiplier = 1 << 10
		sizeStr = sizeStr[:len(sizeStr)-1]
	case 'M', 'm':
		multiplier = 1 << 20
		sizeStr = sizeStr[:len(sizeStr)-1]
	case 'G', 'g':
		multiplier = 1 << 30
		sizeStr = sizeStr[:len(sizeStr)-1]
	case 'T', 't':
		multiplier = 1 << 40
		sizeStr = sizeStr[:len(sizeStr)-1]
	}

	var size int64
	if _, err := fmt.Sscanf(sizeStr, "%d", &size); err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", sizeStr, err)
	}
	if size < 0 {
		return 0, fmt.Errorf("size must not be negative")
	}

	return size * multiplier, nil
}
