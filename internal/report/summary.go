package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/fav-janitor/internal/store"
)

// SummaryReport describes the favorites of one base directory and the
// state of its cache
type SummaryReport struct {
	GeneratedAt time.Time

	// Favorites
	Groups     int
	Favorites  int
	Resolved   int
	FromCache  int
	WithJSON   int
	Unresolved []Missing
	Duration   time.Duration

	// Cache
	Cache          *store.Stats
	TopCheckpoints []store.ValueCount
	TopSamplers    []store.ValueCount

	// Metadata
	BaseDir       string
	FavoritesPath string
	DatabasePath  string
	EventLogPath  string
}

// Missing is a favorite no file could be found for
type Missing struct {
	GroupKey   string
	Identifier string
}

// RunTotals are the counts of the warm run a report is generated after
type RunTotals struct {
	Groups     int
	Favorites  int
	Resolved   int
	FromCache  int
	WithJSON   int
	Unresolved []Missing
	Duration   time.Duration
}

// GenerateSummaryReport combines run totals with cache statistics. db may
// be nil when the run had no cache.
func GenerateSummaryReport(db *store.Store, run *RunTotals, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		Unresolved:   make([]Missing, 0),
	}

	if run != nil {
		report.Groups = run.Groups
		report.Favorites = run.Favorites
		report.Resolved = run.Resolved
		report.FromCache = run.FromCache
		report.WithJSON = run.WithJSON
		report.Duration = run.Duration
		report.Unresolved = append(report.Unresolved, run.Unresolved...)
	}

	if db == nil {
		return report, nil
	}
	report.DatabasePath = db.Path()

	stats, err := db.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to gather cache statistics: %w", err)
	}
	report.Cache = stats

	// Top 10 of each field
	if report.TopCheckpoints, err = db.TopCheckpoints(10); err != nil {
		return nil, err
	}
	if report.TopSamplers, err = db.TopSamplers(10); err != nil {
		return nil, err
	}

	return report, nil
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Favorites Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.BaseDir != "" {
		md.WriteString(fmt.Sprintf("**Base directory:** `%s`\n\n", report.BaseDir))
	}
	if report.FavoritesPath != "" {
		md.WriteString(fmt.Sprintf("**Favorites:** `%s`\n\n", report.FavoritesPath))
	}
	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Groups | %d |\n", report.Groups))
	md.WriteString(fmt.Sprintf("| Favorites | %d |\n", report.Favorites))
	md.WriteString(fmt.Sprintf("| Resolved | %d |\n", report.Resolved))
	md.WriteString(fmt.Sprintf("| Served from cache | %d |\n", report.FromCache))
	if len(report.Unresolved) > 0 {
		md.WriteString(fmt.Sprintf("| Unresolved | %d |\n", len(report.Unresolved)))
	}
	if report.WithJSON > 0 {
		md.WriteString(fmt.Sprintf("| With JSON metadata | %d |\n", report.WithJSON))
	}
	if report.Duration > 0 {
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", report.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	if report.Cache != nil {
		md.WriteString("## Cache\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Path entries | %d |\n", report.Cache.PathEntries))
		md.WriteString(fmt.Sprintf("| Metadata entries | %d |\n", report.Cache.MetadataEntries))
		md.WriteString(fmt.Sprintf("| With JSON | %d |\n", report.Cache.MetadataPresent))
		md.WriteString(fmt.Sprintf("| Without JSON | %d |\n", report.Cache.MetadataAbsent))
		if report.Cache.SizeBytes > 0 {
			md.WriteString(fmt.Sprintf("| Database size | %s |\n", humanize.IBytes(uint64(report.Cache.SizeBytes))))
		}
		md.WriteString("\n")
	}

	writeCounts(&md, "Top Checkpoints", report.TopCheckpoints)
	writeCounts(&md, "Top Samplers", report.TopSamplers)

	if len(report.Unresolved) > 0 {
		md.WriteString("## Unresolved Favorites\n\n")
		md.WriteString("| Group | Identifier |\n")
		md.WriteString("|-------|------------|\n")
		for _, m := range report.Unresolved {
			md.WriteString(fmt.Sprintf("| %s | %s |\n", m.GroupKey, m.Identifier))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by favj*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func writeCounts(md *strings.Builder, title string, counts []store.ValueCount) {
	if len(counts) == 0 {
		return
	}
	md.WriteString(fmt.Sprintf("## %s\n\n", title))
	md.WriteString("| Count | Name |\n")
	md.WriteString("|-------|------|\n")
	for _, vc := range counts {
		md.WriteString(fmt.Sprintf("| %d | `%s` |\n", vc.Count, truncatePath(vc.Value, 80)))
	}
	md.WriteString("\n")
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
