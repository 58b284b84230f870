package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/coecms/mdssprep/internal/bundler"
	"github.com/coecms/mdssprep/pkg/models"
)

// generateText generates a text report
func (g *Generator) generateText(result *models.ScanResult, plan *bundler.Plan, bres *bundler.Result, outputFile string) error {
	var sb strings.Builder
	stats := result.Stats

	// Header
	sb.WriteString(strings.Repeat("=", 79) + "\n")
	sb.WriteString(fmt.Sprintf("  MDSSPREP ARCHIVE READINESS REPORT v%s\n", result.Version))
	sb.WriteString(strings.Repeat("=", 79) + "\n\n")

	// Summary
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 79) + "\n")
	sb.WriteString(fmt.Sprintf("Scan Path:        %s\n", result.ScanPath))
	sb.WriteString(fmt.Sprintf("Start Time:       %s\n", result.StartTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("End Time:         %s\n", result.EndTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Duration:         %s\n", FormatDuration(result.Duration)))
	sb.WriteString(fmt.Sprintf("Grace Window:     %s\n", g.config.GraceWindow))
	sb.WriteString(fmt.Sprintf("Min File Size:    %s\n", g.config.MinFileSize))
	sb.WriteString(fmt.Sprintf("Max Archive Size: %s\n", g.config.MaxArchiveSize))
	sb.WriteString(fmt.Sprintf("Total Files:      %d\n", stats.TotalFiles))
	sb.WriteString(fmt.Sprintf("Total Dirs:       %d\n", stats.TotalDirs))
	sb.WriteString(fmt.Sprintf("Total Size:       %s\n", prettySize(stats.TotalSize)))
	sb.WriteString(fmt.Sprintf("READY:            %d (%s)\n", stats.ReadyFiles, prettySize(stats.ReadySize)))
	sb.WriteString(fmt.Sprintf("NOT READY:        %d\n", stats.NotReadyFiles))
	sb.WriteString(fmt.Sprintf("SKIPPED:          %d\n", stats.SkippedFiles))
	if stats.StatErrors > 0 {
		sb.WriteString(fmt.Sprintf("ACCESS ERRORS:    %d\n", stats.StatErrors))
	}
	sb.WriteString("\n")

	// Ready candidates
	ready := result.ReadyPaths()
	if len(ready) > 0 {
		sb.WriteString("ARCHIVE CANDIDATES\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, path := range ready {
			sb.WriteString(path + "\n")
		}
		sb.WriteString("\n")
	}

	// Rejections with reasons
	rejected := rejectedFiles(result)
	if len(rejected) > 0 {
		sb.WriteString("REJECTED\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		for _, ce := range rejected {
			state := "not ready"
			if ce.Classification.State == models.StateSkipped {
				state = "skipped"
			}
			sb.WriteString(fmt.Sprintf("  %-9s %s :: %s\n", state, ce.Entry.RelativePath, ce.Classification.Reason))
		}
		sb.WriteString("\n")
	}

	// Bundle plan
	if plan != nil {
		sb.WriteString("BUNDLE PLAN\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		sb.WriteString(fmt.Sprintf("Individual candidates: %d\n", len(plan.Passthrough)))
		sb.WriteString(fmt.Sprintf("Bundles:               %d (%d files)\n", len(plan.Bundles), plan.TotalMembers()))
		for _, b := range plan.Bundles {
			sb.WriteString(fmt.Sprintf("  %s  %d files, %s\n", b.Name, len(b.Members), prettySize(b.Size)))
		}
		sb.WriteString("\n")
	}

	if bres != nil && bres.BundlesWritten > 0 {
		sb.WriteString("ARCHIVES WRITTEN\n")
		sb.WriteString(strings.Repeat("-", 79) + "\n")
		sb.WriteString(fmt.Sprintf("Bundles:           %d\n", bres.BundlesWritten))
		sb.WriteString(fmt.Sprintf("Files bundled:     %d\n", bres.FilesBundled))
		sb.WriteString(fmt.Sprintf("Size on disk:      %s\n", prettySize(bres.ArchiveSize)))
		sb.WriteString(fmt.Sprintf("Originals removed: %d\n", bres.FilesRemoved))
		sb.WriteString("\n")
	}

	return os.WriteFile(outputFile, []byte(sb.String()), 0644)
}
