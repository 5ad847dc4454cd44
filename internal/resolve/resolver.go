// Package resolve maps a favorite (group key, identifier) to a file inside
// the group's dated folder, consulting a path cache first.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/franz/fav-janitor/internal/report"
	"github.com/franz/fav-janitor/internal/util"
	"golang.org/x/text/unicode/norm"
)

// ImageExtensions are the default recognized image file extensions
var ImageExtensions = []string{
	".png",
	".jpg",
	".jpeg",
	".webp",
	".gif",
	".bmp",
	".tif",
	".tiff",
	".avif",
}

// Source says where a resolved path came from
type Source string

const (
	SourceCache Source = "cache"
	SourceScan  Source = "scan"
	SourceNone  Source = "none"
)

// PathCache is the subset of the lookup cache the resolver needs.
// GetPath must only report paths that still exist on disk.
type PathCache interface {
	GetPath(groupKey, identifier string) (string, bool)
	PutPath(groupKey, identifier, path string)
}

// Resolver finds files for favorites under a base directory
type Resolver struct {
	baseDir    string
	cache      PathCache
	extensions map[string]bool
	logger     *report.EventLogger
}

// Config holds resolver configuration
type Config struct {
	BaseDir        string
	Cache          PathCache
	AdditionalExts []string
	Logger         *report.EventLogger
}

// New creates a new Resolver. A nil Cache resolves by scanning every time.
func New(cfg *Config) *Resolver {
	// Build extension map (case-insensitive)
	extMap := make(map[string]bool)
	for _, ext := range ImageExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	for _, ext := range cfg.AdditionalExts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[ext] = true
	}

	return &Resolver{
		baseDir:    cfg.BaseDir,
		cache:      cfg.Cache,
		extensions: extMap,
		logger:     cfg.Logger,
	}
}

// Result is the outcome of one resolution
type Result struct {
	GroupKey   string
	Identifier string
	Path       string
	Source     Source
}

// Found reports whether a file was matched
func (r *Result) Found() bool {
	return r.Path != ""
}

// Resolve returns the path for a favorite, or false when nothing matches
func (r *Resolver) Resolve(groupKey, identifier string) (string, bool) {
	res := r.Lookup(groupKey, identifier)
	return res.Path, res.Found()
}

// Lookup resolves a favorite and reports where the answer came from.
// A cache hit skips the directory listing. On a scan match the cache is
// updated before returning.
func (r *Resolver) Lookup(groupKey, identifier string) *Result {
	res := &Result{GroupKey: groupKey, Identifier: identifier, Source: SourceNone}

	if r.cache != nil {
		if path, ok := r.cache.GetPath(groupKey, identifier); ok {
			res.Path = path
			res.Source = SourceCache
			r.logger.LogResolve(groupKey, identifier, path, string(res.Source))
			return res
		}
	}

	path := r.scan(groupKey, identifier)
	if path != "" {
		res.Path = path
		res.Source = SourceScan
		if r.cache != nil {
			r.cache.PutPath(groupKey, identifier, path)
		}
	}

	r.logger.LogResolve(groupKey, identifier, res.Path, string(res.Source))
	return res
}

// scan lists <base>/<group> and picks the first image whose name contains
// identifier, falling back to the first file of any kind that does.
func (r *Resolver) scan(groupKey, identifier string) string {
	if identifier == "" {
		return ""
	}

	// Group keys must stay inside the base directory
	if !filepath.IsLocal(groupKey) {
		util.DebugLog("Ignoring group key outside base directory: %q", groupKey)
		return ""
	}

	dir := filepath.Join(r.baseDir, groupKey)
	entries, err := os.ReadDir(dir)
	if err != nil {
		util.DebugLog("Cannot list %s: %v", dir, err)
		return ""
	}

	// Compare in NFC; some filesystems hand back decomposed names
	identifier = norm.NFC.String(identifier)

	// os.ReadDir returns entries sorted by filename
	var fallback string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.Contains(norm.NFC.String(name), identifier) || !isRegular(dir, entry) {
			continue
		}
		if r.isImageFile(name) {
			return filepath.Join(dir, name)
		}
		if fallback == "" {
			fallback = filepath.Join(dir, name)
		}
	}

	return fallback
}

// isImageFile checks if a file has a recognized image extension
func (r *Resolver) isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return r.extensions[ext]
}

// isRegular reports whether entry is a regular file, following symlinks
func isRegular(dir string, entry os.DirEntry) bool {
	mode := entry.Type()
	if mode.IsRegular() {
		return true
	}
	if mode&os.ModeSymlink == 0 {
		return false
	}
	return util.IsRegularFile(filepath.Join(dir, entry.Name()))
}
