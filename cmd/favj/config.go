package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/fav-janitor/internal/favorites"
	"github.com/franz/fav-janitor/internal/library"
	"github.com/franz/fav-janitor/internal/report"
	"github.com/franz/fav-janitor/internal/store"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (FAVJ_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigBool retrieves a bool config value
func GetConfigBool(key string) bool {
	return viper.GetBool(key)
}

// GetConfigStringSlice retrieves a string slice config value
func GetConfigStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// appConfig is the resolved configuration shared by all commands
type appConfig struct {
	BaseDir       string
	FavoritesPath string
	DBPath        string
	NoCache       bool
	Extensions    []string
	Events        bool
	EventLevel    report.EventLevel
}

func loadAppConfig() (*appConfig, error) {
	base := GetConfigString("base", ".")
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("%w: base directory %q: %v", util.ErrInvalidConfig, base, err)
	}

	return &appConfig{
		BaseDir:       abs,
		FavoritesPath: GetConfigString("favorites", filepath.Join(abs, favorites.DefaultFileName)),
		DBPath:        GetConfigString("db", store.DefaultPath(abs)),
		NoCache:       GetConfigBool("no-cache"),
		Extensions:    GetConfigStringSlice("extensions"),
		Events:        GetConfigBool("events"),
		EventLevel:    report.ParseLevel(GetConfigString("event-level", string(report.LevelInfo))),
	}, nil
}

// session is an opened library with the resources behind it
type session struct {
	cfg    *appConfig
	lib    *library.Library
	db     *store.Store // nil when running without a cache
	logger *report.EventLogger
}

// openSession opens the cache and event log for cfg and builds the library.
// A cache that cannot be opened is reported and the session runs without it.
func openSession(cfg *appConfig) *session {
	s := &session{cfg: cfg, logger: report.NullLogger()}

	if !cfg.NoCache {
		db, err := store.OpenFile(cfg.DBPath)
		if err != nil {
			util.WarnLog("Cache unavailable, continuing without it: %v", err)
		} else {
			s.db = db
		}
	}

	if cfg.Events {
		logger, err := report.NewEventLogger(eventDir(cfg), cfg.EventLevel)
		if err != nil {
			util.WarnLog("Failed to create event logger: %v", err)
		} else {
			s.logger = logger
			util.InfoLog("Event log: %s", logger.Path())
		}
	}

	if s.db != nil {
		logger := s.logger
		s.db.OnStale(func(groupKey, identifier, path string) {
			logger.LogStale(groupKey, identifier, path)
		})
	}

	libCfg := &library.Config{
		BaseDir:        cfg.BaseDir,
		FavoritesPath:  cfg.FavoritesPath,
		AdditionalExts: cfg.Extensions,
		Logger:         s.logger,
	}
	if s.db != nil {
		libCfg.Cache = store.NewCache(s.db)
	}
	s.lib = library.New(libCfg)

	return s
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
	s.logger.Close()
}

// openConfiguredSession loads the configuration and opens a session
func openConfiguredSession() (*session, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	if !util.DirExists(cfg.BaseDir) {
		return nil, fmt.Errorf("%w: base directory does not exist: %s", util.ErrNotFound, cfg.BaseDir)
	}
	return openSession(cfg), nil
}

// requireCache opens the cache database for maintenance commands
func requireCache() (*appConfig, *store.Store, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, nil, fmt.Errorf("%w: no cache database at %s", util.ErrNotFound, cfg.DBPath)
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, err)
	}
	return cfg, db, nil
}

// eventDir is where JSONL event logs of a base directory are written
func eventDir(cfg *appConfig) string {
	return filepath.Join(cfg.BaseDir, store.DirName, "events")
}
