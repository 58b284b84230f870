package report

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/coecms/mdssprep/internal/bundler"
	"github.com/coecms/mdssprep/internal/config"
	"github.com/coecms/mdssprep/pkg/models"
	"go.uber.org/zap"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[38;5;245m"
)

// Generator generates scan reports in various formats
type Generator struct {
	config *config.Config
	logger *zap.Logger
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.Config, logger *zap.Logger) *Generator {
	return &Generator{
		config: cfg,
		logger: logger,
	}
}

// Generate emits a report for one invocation. With no format
// configured the summary goes to out (normally stdout); otherwise the
// report is written to the configured or a timestamped default file
// and its absolute path returned.
func (g *Generator) Generate(out io.Writer, result *models.ScanResult, plan *bundler.Plan, bres *bundler.Result) (string, error) {
	format := g.config.ReportFormat
	outputFile := g.config.OutputFile

	// Config can arrive from the environment without passing CLI flag
	// validation, so the format is checked here too.
	switch format {
	case "", "json", "txt", "text", "yaml", "yml":
	default:
		return "", fmt.Errorf("unknown report format: %s", format)
	}

	if format == "" {
		g.printConsole(out, result, plan, bres)
		return "", nil
	}

	if outputFile == "" {
		timestamp := time.Now().Format("20060102-150405")
		switch format {
		case "json":
			outputFile = fmt.Sprintf("MDSSPREP-REPORT-%s.json", timestamp)
		case "txt", "text":
			outputFile = fmt.Sprintf("MDSSPREP-REPORT-%s.txt", timestamp)
		case "yaml", "yml":
			outputFile = fmt.Sprintf("MDSSPREP-REPORT-%s.yaml", timestamp)
		}
	}

	g.logger.Info("Generating report",
		zap.String("format", format),
		zap.String("output", outputFile))

	var err error
	switch format {
	case "json":
		err = g.generateJSON(result, plan, bres, outputFile)
	case "txt", "text":
		err = g.generateText(result, plan, bres, outputFile)
	case "yaml", "yml":
		err = g.generateYAML(result, plan, bres, outputFile)
	}

	if err != nil {
		return "", fmt.Errorf("failed to generate %s report: %w", format, err)
	}

	absPath, _ := filepath.Abs(outputFile)
	return absPath, nil
}

// PrintList writes the ready candidate paths one per line, suitable
// for piping to the mdss submission command.
func (g *Generator) PrintList(out io.Writer, result *models.ScanResult) {
	for _, path := range result.ReadyPaths() {
		fmt.Fprintln(out, path)
	}
}

// printConsole prints a colored summary to out.
func (g *Generator) printConsole(out io.Writer, result *models.ScanResult, plan *bundler.Plan, bres *bundler.Result) {
	stats := result.Stats

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s%sSCAN COMPLETE%s\n", colorBold, colorCyan, colorReset)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %sPath:%s      %s\n", colorGray, colorReset, result.ScanPath)
	fmt.Fprintf(out, "  %sSettings:%s  min_file_size: %s  max_archive_size: %s  grace_window: %s\n",
		colorGray, colorReset, g.config.MinFileSize, g.config.MaxArchiveSize, g.config.GraceWindow)
	fmt.Fprintf(out, "  %sEntries:%s   %d files, %d dirs, %d symlinks (%s)\n",
		colorGray, colorReset, stats.TotalFiles, stats.TotalDirs, stats.TotalSymlinks, prettySize(stats.TotalSize))
	fmt.Fprintf(out, "  %sDuration:%s  %s\n", colorGray, colorReset, FormatDuration(result.Duration))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s✓ Ready:%s     %d (%s)\n", colorGreen, colorReset, stats.ReadyFiles, prettySize(stats.ReadySize))
	fmt.Fprintf(out, "  %s… Not ready:%s %d\n", colorYellow, colorReset, stats.NotReadyFiles)
	fmt.Fprintf(out, "  %s⊘ Skipped:%s   %d\n", colorGray, colorReset, stats.SkippedFiles)

	rejected := rejectedFiles(result)
	if len(rejected) > 0 {
		fmt.Fprintln(out)
		for _, ce := range rejected {
			marker := colorYellow + "…"
			if ce.Classification.State == models.StateSkipped {
				marker = colorGray + "⊘"
			}
			fmt.Fprintf(out, "  %s%s %s%s: %s%s\n",
				marker, colorReset, ce.Entry.RelativePath, colorDim, ce.Classification.Reason, colorReset)
		}
	}

	if plan != nil {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "%s%sBUNDLE PLAN%s\n", colorBold, colorCyan, colorReset)
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %sIndividual candidates:%s %d\n", colorGray, colorReset, len(plan.Passthrough))
		fmt.Fprintf(out, "  %sBundles:%s               %d (%d files)\n", colorGray, colorReset, len(plan.Bundles), plan.TotalMembers())
		for _, b := range plan.Bundles {
			note := ""
			if b.Uncompressible > 0 {
				note = fmt.Sprintf("  %s(%d uncompressible)%s", colorDim, b.Uncompressible, colorReset)
			}
			fmt.Fprintf(out, "    %s  %d files, %s%s\n", b.Name, len(b.Members), prettySize(b.Size), note)
		}

		// Original vs final counts, as the site operators read them.
		origFiles := stats.ReadyFiles
		finalFiles := len(plan.Passthrough) + len(plan.Bundles)
		finalSize := stats.ReadySize
		if bres != nil && !bundlesPending(bres) {
			finalSize = stats.ReadySize - bres.BundledSize + bres.ArchiveSize
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %sNumber of files ::%s orig: %d  final: %d\n", colorGray, colorReset, origFiles, finalFiles)
		fmt.Fprintf(out, "  %sSize of files   ::%s orig: %s  final: %s\n", colorGray, colorReset, prettySize(stats.ReadySize), prettySize(finalSize))
		if origFiles > 0 && finalFiles > 0 {
			fmt.Fprintf(out, "  %sAverage size    ::%s orig: %s  final: %s\n", colorGray, colorReset,
				prettySize(stats.ReadySize/int64(origFiles)), prettySize(finalSize/int64(finalFiles)))
		}
	}

	if bres != nil {
		fmt.Fprintln(out)
		if bres.BundlesWritten > 0 {
			fmt.Fprintf(out, "  %s✓ Archives written:%s %d (%d files, %s on disk)\n",
				colorGreen, colorReset, bres.BundlesWritten, bres.FilesBundled, prettySize(bres.ArchiveSize))
		}
		if bres.FilesRemoved > 0 {
			fmt.Fprintf(out, "  %s✗ Originals removed:%s %d\n", colorRed, colorReset, bres.FilesRemoved)
		}
	}

	fmt.Fprintln(out)
}

// rejectedFiles returns the not-ready and skipped entries with
// directories filtered out; every rejected path is shown with its
// reason.
func rejectedFiles(result *models.ScanResult) []*models.ClassifiedEntry {
	var out []*models.ClassifiedEntry
	for _, ce := range result.Rejected() {
		if ce.Entry.Kind == models.KindDir {
			continue
		}
		out = append(out, ce)
	}
	return out
}

func bundlesPending(bres *bundler.Result) bool {
	return bres.BundlesWritten == 0
}

// FormatDuration formats a duration with at most 2 decimal places.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	} else if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	} else if d < time.Hour {
		mins := int(d.Minutes())
		secs := d.Seconds() - float64(mins*60)
		return fmt.Sprintf("%dm%.2fs", mins, secs)
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) - hours*60
	secs := d.Seconds() - float64(hours*3600) - float64(mins*60)
	return fmt.Sprintf("%dh%dm%.2fs", hours, mins, secs)
}

// prettySize renders a byte count with binary-unit prefixes.
func prettySize(n int64) string {
	if n < 0 {
		n = 0
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	exp := int(math.Log(float64(n)) / math.Log(1024))
	if exp >= len(units) {
		exp = len(units) - 1
	}
	return fmt.Sprintf("%.1f %s", float64(n)/math.Pow(1024, float64(exp)), units[exp])
}
