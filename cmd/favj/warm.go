package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/franz/fav-janitor/internal/library"
	"github.com/franz/fav-janitor/internal/report"
	"github.com/franz/fav-janitor/internal/store"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Resolve every favorite (and optionally its metadata) into the cache",
	Long: `Resolve all favorites of the favorites list in the background so later
lookups are answered from the cache.

With --metadata the embedded metadata of every resolved file is extracted
and cached as well. With --report a Markdown summary is written to
<base>/cache/reports/<timestamp>/summary.md.

Interrupting with Ctrl-C stops the run; everything resolved so far stays
cached.`,
	Args: cobra.NoArgs,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)

	warmCmd.Flags().Bool("metadata", false, "also extract metadata of every resolved file")
	warmCmd.Flags().IntP("concurrency", "c", 4, "number of resolver workers")
	warmCmd.Flags().Bool("no-progress", false, "do not draw a progress bar")
	warmCmd.Flags().Bool("report", false, "write a Markdown summary report")
	warmCmd.Flags().String("out", "", "output directory for the report (default: <base>/cache/reports/<timestamp>)")

	viper.BindPFlag("concurrency", warmCmd.Flags().Lookup("concurrency"))
}

func runWarm(cmd *cobra.Command, args []string) error {
	withMetadata, _ := cmd.Flags().GetBool("metadata")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	writeReport, _ := cmd.Flags().GetBool("report")
	outputDir, _ := cmd.Flags().GetString("out")
	concurrency := GetConfigInt("concurrency", 4)

	s, err := openConfiguredSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	util.InfoLog("Base: %s", s.cfg.BaseDir)
	util.InfoLog("Concurrency: %d", concurrency)

	result, err := s.lib.Warm(ctx, library.WarmOptions{
		Concurrency: concurrency,
		Metadata:    withMetadata,
		Progress:    !noProgress,
	})
	if result != nil {
		for _, res := range result.Unresolved {
			util.WarnLog("Unresolved: %s/%s", res.GroupKey, res.Identifier)
		}
	}
	if err != nil {
		return err
	}

	util.InfoLog("  Favorites: %d", result.Favorites)
	util.InfoLog("  Resolved:  %d (%d from cache)", result.Resolved, result.FromCache)
	if withMetadata {
		util.InfoLog("  With JSON: %d", result.WithJSON)
	}
	util.InfoLog("  Took:      %v", result.Duration.Round(time.Millisecond))

	if !writeReport {
		return nil
	}

	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join(s.cfg.BaseDir, store.DirName, "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	summary, err := report.GenerateSummaryReport(s.db, runTotals(s.lib, result), s.logger.Path())
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.BaseDir = s.cfg.BaseDir
	summary.FavoritesPath = s.lib.FavoritesPath()

	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	util.SuccessLog("Report saved to: %s", outputPath)

	return nil
}

func runTotals(lib *library.Library, result *library.WarmResult) *report.RunTotals {
	totals := &report.RunTotals{
		Groups:    len(lib.ListFavoriteGroups()),
		Favorites: result.Favorites,
		Resolved:  result.Resolved,
		FromCache: result.FromCache,
		WithJSON:  result.WithJSON,
		Duration:  result.Duration,
	}
	for _, res := range result.Unresolved {
		totals.Unresolved = append(totals.Unresolved, report.Missing{GroupKey: res.GroupKey, Identifier: res.Identifier})
	}
	return totals
}
