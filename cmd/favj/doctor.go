package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/franz/fav-janitor/internal/favorites"
	"github.com/franz/fav-janitor/internal/store"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure favj can operate correctly.

This command checks:
- SQLite version
- Base directory readability
- Favorites list presence and group folders
- Cache database accessibility and integrity
- Cache directory writability and disk space

Use this command to troubleshoot issues before running other favj commands.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== favj doctor - System Diagnostics ===")
	util.InfoLog("")

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	results := []checkResult{
		checkSQLite(),
		checkBaseDirectory(cfg.BaseDir),
		checkFavoritesFile(cfg.FavoritesPath, cfg.BaseDir),
	}
	if cfg.NoCache {
		results = append(results, checkResult{name: "Database", warning: true, message: "cache disabled (--no-cache)"})
	} else {
		results = append(results,
			checkDatabase(cfg.DBPath),
			checkCacheDirectory(filepath.Dir(cfg.DBPath)),
		)
	}
	if util.DirExists(cfg.BaseDir) {
		results = append(results, checkDiskSpace(cfg.BaseDir, "base"))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running favj.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed!")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is pure Go; this only proves the driver works
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkBaseDirectory verifies the base directory is readable
func checkBaseDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Base directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Base directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    "Base directory",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	dirs := 0
	for _, e := range entries {
		if e.IsDir() && e.Name() != store.DirName {
			dirs++
		}
	}

	return checkResult{
		name:    "Base directory",
		message: fmt.Sprintf("%s (%d folders)", path, dirs),
	}
}

// checkFavoritesFile parses the favorites list and reports groups whose
// folder is missing
func checkFavoritesFile(path, baseDir string) checkResult {
	if !util.IsRegularFile(path) {
		return checkResult{
			name:    "Favorites",
			warning: true,
			message: fmt.Sprintf("%s not found (no favorites will be listed)", path),
		}
	}

	groups := favorites.ParseFile(path)
	missing := 0
	for _, g := range groups {
		if !util.DirExists(filepath.Join(baseDir, g.Key)) {
			missing++
		}
	}

	result := checkResult{
		name:    "Favorites",
		message: fmt.Sprintf("%s (%d groups, %d favorites)", path, len(groups), favorites.Count(groups)),
	}
	if len(groups) == 0 {
		result.warning = true
		result.message = fmt.Sprintf("%s has no groups", path)
	} else if missing > 0 {
		result.warning = true
		result.message += fmt.Sprintf(", %d group folders missing", missing)
	}
	return result
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	st, err := db.Stats()
	if err != nil {
		return checkResult{
			name:    "Database",
			warning: true,
			message: fmt.Sprintf("%s (cannot read statistics: %v)", dbPath, err),
		}
	}

	return checkResult{
		name: "Database",
		message: fmt.Sprintf("%s (%s, %d paths, %d metadata entries)",
			dbPath, humanize.IBytes(uint64(info.Size())), st.PathEntries, st.MetadataEntries),
	}
}

// checkCacheDirectory verifies the cache directory is writable
func checkCacheDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Cache directory",
				message: fmt.Sprintf("%s (will be created on first run)", path),
			}
		}
		return checkResult{
			name:    "Cache directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Cache directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	// Check write permission by creating a temp file
	testFile := filepath.Join(path, ".favj_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Cache directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Cache directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)

	// Warn below 100 MiB
	warning := availBytes < 100*1024*1024
	message := fmt.Sprintf("%s of %s available", humanize.IBytes(availBytes), humanize.IBytes(totalBytes))
	if warning {
		message += " (low space!)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: message,
	}
}
