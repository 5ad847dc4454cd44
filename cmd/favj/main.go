package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "favj",
		Short: "Favorites janitor - find favorite images and their generation metadata",
		Long: `favj (Favorites Janitor) reads a hand-edited favorites list, finds the
image file behind every favorite inside its dated folder, and extracts the
generation metadata (workflow JSON, checkpoint, samplers) embedded in it.

Both lookups are cached in <base>/cache/db.sqlite; cache entries heal
themselves when files move or disappear.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetVerbose(GetConfigBool("verbose"))
			util.SetQuiet(GetConfigBool("quiet"))
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./favj.yaml or ~/.config/favj/favj.yaml)")
	rootCmd.PersistentFlags().StringP("base", "b", "", "base directory holding the dated folders (default is the working directory)")
	rootCmd.PersistentFlags().String("favorites", "", "favorites list (default is <base>/fav.yaml)")
	rootCmd.PersistentFlags().String("db", "", "cache database (default is <base>/cache/db.sqlite)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "do not read or write the cache database")
	rootCmd.PersistentFlags().StringSlice("extensions", nil, "additional image extensions (e.g. .jxl,.heic)")
	rootCmd.PersistentFlags().Bool("events", false, "write a JSONL event log under <base>/cache/events")
	rootCmd.PersistentFlags().String("event-level", "info", "minimum event level (debug, info, warning, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	for _, name := range []string{"base", "favorites", "db", "no-cache", "extensions", "events", "event-level", "verbose", "quiet"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "favj"))
		}
		viper.SetConfigName("favj")
		viper.SetConfigType("yaml")
	}

	// FAVJ_BASE, FAVJ_NO_CACHE, ...
	viper.SetEnvPrefix("FAVJ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
