package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/franz/fav-janitor/internal/report"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the lookup cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache row counts and size",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache rows whose files no longer exist",
	Long: `Sweep the whole cache for entries pointing at vanished files.

Lookups already drop such entries one at a time when they meet them; prune
cleans everything at once, e.g. after reorganizing the dated folders.`,
	Args: cobra.NoArgs,
	RunE: runCachePrune,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached path and metadata row",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)

	cacheStatsCmd.Flags().String("format", formatTable, "output format (table, csv, markdown)")
	cacheStatsCmd.Flags().Int("top", 5, "number of most common checkpoints and samplers to list")
	cacheClearCmd.Flags().Bool("yes", false, "confirm clearing the cache")
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	top, _ := cmd.Flags().GetInt("top")
	if err := validFormat(format); err != nil {
		return err
	}

	cfg, db, err := requireCache()
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := db.Stats()
	if err != nil {
		return err
	}

	rows := [][]string{
		{"Path entries", humanize.Comma(int64(st.PathEntries))},
		{"Metadata entries", humanize.Comma(int64(st.MetadataEntries))},
		{"  with JSON", humanize.Comma(int64(st.MetadataPresent))},
		{"  without JSON", humanize.Comma(int64(st.MetadataAbsent))},
		{"  not computed", humanize.Comma(int64(st.MetadataPending))},
		{"Database size", humanize.IBytes(uint64(st.SizeBytes))},
	}
	util.InfoLog("Cache: %s", cfg.DBPath)
	printTable(os.Stdout, []string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}, format)

	if top <= 0 {
		return nil
	}

	ckpts, err := db.TopCheckpoints(top)
	if err != nil {
		return err
	}
	samplers, err := db.TopSamplers(top)
	if err != nil {
		return err
	}
	if len(ckpts) > 0 {
		printTable(os.Stdout, []string{"Checkpoint", "Files"}, countRows(ckpts), []columnAlignment{alignLeft, alignRight}, format)
	}
	if len(samplers) > 0 {
		printTable(os.Stdout, []string{"Sampler", "Files"}, countRows(samplers), []columnAlignment{alignLeft, alignRight}, format)
	}

	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	cfg, db, err := requireCache()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := report.NullLogger()
	if cfg.Events {
		if l, err := report.NewEventLogger(eventDir(cfg), cfg.EventLevel); err == nil {
			logger = l
			defer logger.Close()
		}
	}

	result, err := db.PruneStale()
	if err != nil {
		logger.LogError(report.EventPrune, cfg.DBPath, err)
		return err
	}
	logger.LogPrune(result.PathsRemoved, result.MetadataRemoved)

	util.SuccessLog("Pruned %d path and %d metadata entries", result.PathsRemoved, result.MetadataRemoved)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	confirmed, _ := cmd.Flags().GetBool("yes")
	if !confirmed {
		return fmt.Errorf("%w: refusing to clear the cache without --yes", util.ErrInvalidConfig)
	}

	cfg, db, err := requireCache()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Clear(); err != nil {
		return err
	}
	util.SuccessLog("Cleared %s", cfg.DBPath)
	return nil
}
