package library

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/franz/fav-janitor/internal/resolve"
	"github.com/franz/fav-janitor/internal/util"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// WarmOptions configures a warm run
type WarmOptions struct {
	Concurrency int  // resolver workers, default 4
	Metadata    bool // also load metadata of every resolved file
	Progress    bool // show a progress bar when stderr is a terminal
}

// WarmResult summarizes a warm run
type WarmResult struct {
	Favorites  int
	Resolved   int
	FromCache  int
	WithJSON   int
	Unresolved []*resolve.Result
	Duration   time.Duration
}

type warmJob struct {
	groupKey   string
	identifier string
}

// Warm resolves every favorite (and optionally loads its metadata) so later
// lookups are served from the cache. Each resolution is the same
// synchronous call ResolvePath makes; Warm only runs them on a worker pool.
// Unresolved favorites are reported in list order.
func (l *Library) Warm(ctx context.Context, opts WarmOptions) (*WarmResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	start := time.Now()
	groups := l.ListFavoriteGroups()

	var jobs []warmJob
	for _, g := range groups {
		for _, id := range g.Identifiers {
			jobs = append(jobs, warmJob{groupKey: g.Key, identifier: id})
		}
	}

	result := &WarmResult{Favorites: len(jobs)}
	if len(jobs) == 0 {
		util.InfoLog("No favorites to warm in %s", l.favPath)
		return result, nil
	}
	util.InfoLog("Warming %d favorites in %d groups", len(jobs), len(groups))

	// Counters for progress reporting
	var processed atomic.Int64
	var resolved atomic.Int64
	var fromCache atomic.Int64
	var withJSON atomic.Int64

	missing := make([]*resolve.Result, len(jobs))

	var bar *progressbar.ProgressBar
	if opts.Progress && util.StderrIsTerminal() && !util.IsQuiet() {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Warming"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-progressCtx.Done():
				return
			case <-ticker.C:
				p := processed.Load()
				if bar != nil {
					bar.Describe(fmt.Sprintf("Warming | %d resolved | %d cached", resolved.Load(), fromCache.Load()))
					bar.Set64(p)
				} else if p > 0 {
					util.DebugLog("Warm progress: %d/%d (resolved: %d)", p, len(jobs), resolved.Load())
				}
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for idx, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := l.resolver.Lookup(job.groupKey, job.identifier)
			if !res.Found() {
				// Each worker writes only its own slot
				missing[idx] = res
			} else {
				resolved.Add(1)
				if res.Source == resolve.SourceCache {
					fromCache.Add(1)
				}
				if opts.Metadata && l.LoadMetadata(res.Path).Found() {
					withJSON.Add(1)
				}
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	cancelProgress()

	if bar != nil {
		bar.Set64(processed.Load())
		bar.Finish()
	}

	for _, res := range missing {
		if res != nil {
			result.Unresolved = append(result.Unresolved, res)
		}
	}
	result.Resolved = int(resolved.Load())
	result.FromCache = int(fromCache.Load())
	result.WithJSON = int(withJSON.Load())
	result.Duration = time.Since(start)

	l.logger.LogWarm(result.Resolved, len(result.Unresolved), result.WithJSON, result.Duration)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("warm interrupted after %d of %d favorites: %w",
			processed.Load(), len(jobs), err)
	}

	util.SuccessLog("Warm complete: %d/%d resolved (%d from cache), %d unresolved",
		result.Resolved, result.Favorites, result.FromCache, len(result.Unresolved))

	return result, nil
}
