// Package library is the engine's outbound surface: it lists favorite
// groups, resolves favorites to files and loads their metadata, hiding
// every cache detail from callers.
package library

import (
	"path/filepath"
	"time"

	"github.com/franz/fav-janitor/internal/favorites"
	"github.com/franz/fav-janitor/internal/meta"
	"github.com/franz/fav-janitor/internal/report"
	"github.com/franz/fav-janitor/internal/resolve"
	"github.com/franz/fav-janitor/internal/store"
	"github.com/franz/fav-janitor/internal/util"
)

// Cache is the lookup cache as seen by the library. Implementations are
// best-effort: failures read as misses and writes may be dropped.
type Cache interface {
	resolve.PathCache
	GetMetadata(path string) (*store.Metadata, bool)
	PutMetadata(m *store.Metadata)
}

// NopCache misses on every read and drops every write. It is what the
// library runs on when no cache could be opened.
type NopCache struct{}

func (NopCache) GetPath(string, string) (string, bool) { return "", false }
func (NopCache) PutPath(string, string, string) {}
func (NopCache) GetMetadata(string) (*store.Metadata, bool) { return nil, false }
func (NopCache) PutMetadata(*store.Metadata) {}

// Library ties the favorites list, the dated folders and the cache of one
// base directory together
type Library struct {
	baseDir  string
	favPath  string
	cache    Cache
	resolver *resolve.Resolver
	logger   *report.EventLogger
}

// Config holds library configuration
type Config struct {
	BaseDir        string
	FavoritesPath  string // defaults to <BaseDir>/fav.yaml
	Cache          Cache  // defaults to NopCache
	AdditionalExts []string
	Logger         *report.EventLogger
}

// New creates a Library for cfg.BaseDir
func New(cfg *Config) *Library {
	favPath := cfg.FavoritesPath
	if favPath == "" {
		favPath = filepath.Join(cfg.BaseDir, favorites.DefaultFileName)
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NopCache{}
	}

	return &Library{
		baseDir: cfg.BaseDir,
		favPath: favPath,
		cache:   cache,
		resolver: resolve.New(&resolve.Config{
			BaseDir:        cfg.BaseDir,
			Cache:          cache,
			AdditionalExts: cfg.AdditionalExts,
			Logger:         cfg.Logger,
		}),
		logger: cfg.Logger,
	}
}

// BaseDir returns the directory holding the dated folders
func (l *Library) BaseDir() string {
	return l.baseDir
}

// FavoritesPath returns the favorites list location
func (l *Library) FavoritesPath() string {
	return l.favPath
}

// ListFavoriteGroups parses the favorites list. A missing list yields no groups.
func (l *Library) ListFavoriteGroups() []favorites.Group {
	return favorites.ParseFile(l.favPath)
}

// ResolvePath returns the file for a favorite, or false when none matches
func (l *Library) ResolvePath(groupKey, identifier string) (string, bool) {
	return l.resolver.Resolve(groupKey, identifier)
}

// Lookup is ResolvePath that also reports whether the cache answered
func (l *Library) Lookup(groupKey, identifier string) *resolve.Result {
	return l.resolver.Lookup(groupKey, identifier)
}

// Metadata is the metadata of one file as handed to callers
type Metadata struct {
	Path         string
	JSON         string // pretty-printed; empty when none was found
	CkptName     string
	SamplerNames []string
	Cached       bool // served from the cache without reading the file
}

// Found reports whether a JSON object was located in the file
func (m *Metadata) Found() bool {
	return m.JSON != ""
}

// LoadMetadata returns the metadata of the file at path. It never fails:
// a missing file, an unreadable file or a file without JSON all yield an
// empty result. Fresh extractions are written back to the cache, including
// the "nothing found" outcome.
func (l *Library) LoadMetadata(path string) *Metadata {
	result := &Metadata{Path: path}
	if path == "" {
		return result
	}

	// The cache lookup also purges rows of a vanished file
	cached, ok := l.cache.GetMetadata(path)
	if !util.FileExists(path) {
		return result
	}

	if ok {
		return l.fromCache(cached)
	}

	start := time.Now()
	extracted, err := meta.ExtractFromPath(path)
	if err != nil {
		util.DebugLog("Metadata extraction failed for %s: %v", path, err)
		l.logger.LogMeta(path, "extract", false, time.Since(start), err)
		return result
	}
	l.logger.LogMeta(path, "extract", extracted.Found, time.Since(start), nil)

	entry := &store.Metadata{Path: path, State: store.MetadataAbsent}
	if extracted.Found {
		entry.State = store.MetadataPresent
		entry.JSON = extracted.JSON
		entry.CkptName = extracted.CkptName
		entry.SamplerNames = extracted.SamplerNames

		result.JSON = extracted.JSON
		result.CkptName = extracted.CkptName
		result.SamplerNames = extracted.SamplerNames
	}
	l.cache.PutMetadata(entry)

	return result
}

// fromCache converts a cached entry, deriving missing fields from the
// cached JSON and writing them back when that yields something
func (l *Library) fromCache(cached *store.Metadata) *Metadata {
	result := &Metadata{
		Path:         cached.Path,
		CkptName:     cached.CkptName,
		SamplerNames: cached.SamplerNames,
		Cached:       true,
	}
	if cached.State != store.MetadataPresent {
		l.logger.LogMeta(cached.Path, "cache", false, 0, nil)
		return result
	}
	result.JSON = cached.JSON

	if cached.JSON != "" && !cached.HasFields() {
		fields := meta.ExtractFields(cached.JSON)
		if fields.CkptName != "" || len(fields.SamplerNames) > 0 {
			result.CkptName = fields.CkptName
			result.SamplerNames = fields.SamplerNames
			cached.CkptName = fields.CkptName
			cached.SamplerNames = fields.SamplerNames
			l.cache.PutMetadata(cached)
		}
	}

	l.logger.LogMeta(cached.Path, "cache", result.Found(), 0, nil)
	return result
}
