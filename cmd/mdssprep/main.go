package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coecms/mdssprep/internal/bundler"
	"github.com/coecms/mdssprep/internal/config"
	"github.com/coecms/mdssprep/internal/manifest"
	"github.com/coecms/mdssprep/internal/report"
	"github.com/coecms/mdssprep/internal/scanner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "0.1.0"
	logger  *zap.Logger
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mdssprep",
		Short: "Prepare directories for archiving to mdss tape storage",
		Long: `mdssprep walks a directory tree, classifies every entry against
archive-readiness rules, and produces a validated list of candidate
paths for the mdss submission tool. Small files can be bundled into
checksummed tar archives before submission.`,
		Version: version,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	// Global verbose flag
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(prepCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initLogger builds the logger: development output under -v, silent
// error-only JSON otherwise.
func initLogger() error {
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.Config{
			Level:            zap.NewAtomicLevelAt(zapcore.ErrorLevel),
			Encoding:         "json",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
			EncoderConfig:    zap.NewProductionEncoderConfig(),
		}
		logger, err = cfg.Build()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// policyFlags are the flags shared between scan and prep.
type policyFlags struct {
	grace           time.Duration
	maxSize         string
	minFileSize     string
	maxArchiveSize  string
	allowEmpty      bool
	exclude         []string
	excludePatterns []string
	includePatterns []string
	manifestName    string
	reportFormat    string
	outputFile      string
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.grace, "grace", 0, "Grace window: files modified more recently are not ready (default 24h)")
	cmd.Flags().StringVar(&f.maxSize, "max-size", "", "Maximum size for a single candidate (default 5T)")
	cmd.Flags().StringVar(&f.minFileSize, "min-file-size", "", "Files below this size are bundled (default 50M)")
	cmd.Flags().StringVar(&f.maxArchiveSize, "max-archive-size", "", "Size cap for one bundle (default 10G)")
	cmd.Flags().BoolVar(&f.allowEmpty, "allow-empty", false, "Allow zero-length files as candidates")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Directory names to prune (comma-separated)")
	cmd.Flags().StringSliceVar(&f.excludePatterns, "exclude-pattern", nil, "Glob patterns to skip")
	cmd.Flags().StringSliceVar(&f.includePatterns, "include-pattern", nil, "Glob patterns that override excludes and size limits")
	cmd.Flags().StringVar(&f.manifestName, "manifest", "", "Manifest file name inside the scanned root (default .mdssprep.yaml)")
	cmd.Flags().StringVarP(&f.reportFormat, "report", "r", "", "Report format: text, json, yaml (default: console output)")
	cmd.Flags().StringVarP(&f.outputFile, "output", "o", "", "Report output file path")
}

// apply overrides config values with any flags the user set. The
// grace flag is checked for presence rather than value, so an explicit
// --grace 0 disables the window.
func (f *policyFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("grace") {
		cfg.GraceWindow = f.grace
	}
	if f.maxSize != "" {
		cfg.MaxSize = f.maxSize
	}
	if f.minFileSize != "" {
		cfg.MinFileSize = f.minFileSize
	}
	if f.maxArchiveSize != "" {
		cfg.MaxArchiveSize = f.maxArchiveSize
	}
	if f.allowEmpty {
		cfg.AllowEmpty = true
	}
	if len(f.exclude) > 0 {
		cfg.Exclude = f.exclude
	}
	if len(f.excludePatterns) > 0 {
		cfg.ExcludePatterns = f.excludePatterns
	}
	if len(f.includePatterns) > 0 {
		cfg.IncludePatterns = f.includePatterns
	}
	if f.manifestName != "" {
		cfg.ManifestName = f.manifestName
	}
	if f.reportFormat != "" {
		cfg.ReportFormat = f.reportFormat
	}
	if f.outputFile != "" {
		cfg.OutputFile = f.outputFile
	}
}

// validateFlags validates CLI flag values before any work is done.
func validateFlags(reportFormat string) error {
	if reportFormat != "" {
		validFormats := []string{"text", "txt", "json", "yaml", "yml"}
		if !contains(validFormats, reportFormat) {
			return fmt.Errorf("--report must be one of: text, json, yaml (got: %s)", reportFormat)
		}
	}
	return nil
}

// setup loads config, applies flag overrides, validates, and builds
// the scanner with its manifest.
func setup(cmd *cobra.Command, path string, flags *policyFlags) (*config.Config, *scanner.Scanner, *manifest.Manifest, error) {
	if err := initLogger(); err != nil {
		return nil, nil, nil, err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return nil, nil, nil, err
	}
	flags.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	m, err := manifest.Load(path, filepath.Join(path, cfg.ManifestName))
	if err != nil {
		return nil, nil, nil, err
	}

	s := scanner.NewScanner(cfg, logger)
	s.Version = version
	s.SetManifest(m)

	return cfg, s, m, nil
}

// scanCmd creates the scan command
func scanCmd() *cobra.Command {
	var (
		flags policyFlags
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Classify a directory tree for archive readiness",
		Long: `Walk a directory tree and classify every entry against the readiness
rules. Read-only: nothing is written except the report.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if err := validateFlags(flags.reportFormat); err != nil {
				return err
			}

			cfg, s, _, err := setup(cmd, path, &flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			result, err := s.Scan(path)
			if err != nil {
				logger.Error("Scan failed", zap.Error(err))
				return err
			}

			gen := report.NewGenerator(cfg, logger)

			if list {
				gen.PrintList(os.Stdout, result)
				return nil
			}

			plan, err := bundler.BuildPlan(result, cfg)
			if err != nil {
				return err
			}

			reportPath, err := gen.Generate(os.Stdout, result, plan, nil)
			if err != nil {
				return err
			}
			if reportPath != "" {
				fmt.Printf("Report written to %s\n", reportPath)
			}

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&list, "list", "l", false, "Print only ready candidate paths, one per line")

	return cmd
}

// prepCmd creates the prep command
func prepCmd() *cobra.Command {
	var (
		flags    policyFlags
		dryRun   bool
		remove   bool
		compress string
	)

	cmd := &cobra.Command{
		Use:   "prep [path]",
		Short: "Scan, bundle small files, and record the manifest",
		Long: `Scan a directory tree, bundle ready files below the minimum file size
into checksummed tar archives, verify them, and record everything in
the prep manifest. Originals are kept unless --remove is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			if err := validateFlags(flags.reportFormat); err != nil {
				return err
			}

			cfg, s, m, err := setup(cmd, path, &flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if compress != "" {
				cfg.Compress = compress
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			cfg.DryRun = dryRun
			cfg.RemoveOriginal = remove

			result, err := s.Scan(path)
			if err != nil {
				logger.Error("Scan failed", zap.Error(err))
				return err
			}

			plan, err := bundler.BuildPlan(result, cfg)
			if err != nil {
				return err
			}

			b := bundler.NewBundler(logger)
			b.DryRun = cfg.DryRun
			b.RemoveOriginal = cfg.RemoveOriginal
			b.OnVerified = func(bd *bundler.Bundle) error {
				for _, member := range bd.Members {
					if err := m.Add(member.Path, bd.Name); err != nil {
						return err
					}
				}
				return nil
			}

			bres, err := b.Execute(plan)
			if err != nil {
				logger.Error("Bundling failed", zap.Error(err))
				return err
			}

			if !cfg.DryRun {
				// Individual candidates go into the manifest too, so
				// the next scan classifies them already-archived.
				for _, e := range plan.Passthrough {
					if err := m.Add(e.Path, ""); err != nil {
						return err
					}
				}
				if err := m.Save(); err != nil {
					return err
				}
				logger.Info("Manifest updated",
					zap.String("path", m.Path()),
					zap.Int("files", m.Len()))
			}

			gen := report.NewGenerator(cfg, logger)
			reportPath, err := gen.Generate(os.Stdout, result, plan, bres)
			if err != nil {
				return err
			}
			if reportPath != "" {
				fmt.Printf("Report written to %s\n", reportPath)
			}

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dryrun", "n", false, "Plan bundles without writing anything")
	cmd.Flags().BoolVar(&remove, "remove", false, "Delete originals after their archive verifies")
	cmd.Flags().StringVar(&compress, "compress", "", "Bundle compression: gz or none (default gz)")

	return cmd
}

// rulesCmd creates the rules command
func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the readiness rules in evaluation order",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Readiness rules, evaluated in order; the first decisive rule wins:")
			fmt.Println("")
			fmt.Println("  pattern           Skip files matching an exclude glob (includes override)")
			fmt.Println("  own-archive       Skip the prep manifest and bundles from a previous run")
			fmt.Println("  already-archived  Skip files recorded in the manifest with unchanged size+mtime")
			fmt.Println("  symlink           Skip symbolic links; broken links get their own reason")
			fmt.Println("  grace-window      Hold back files modified within the grace window")
			fmt.Println("  empty-file        Hold back zero-length files unless --allow-empty")
			fmt.Println("  max-size          Hold back files above the single-candidate size cap")
			fmt.Println("")
			fmt.Println("Anything not rejected is a ready archive candidate.")
		},
	}
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
