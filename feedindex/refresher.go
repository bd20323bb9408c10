package feedindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/gitsocial/gitsocial/repocache"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/timeline"
	"github.com/gitsocial/gitsocial/vcs"
)

var tracer = otel.Tracer("gitsocial/feedindex")

// Refresher keeps the index warm by periodically rebuilding every followed
// repository's entries from its cached mirror.
type Refresher struct {
	Store Store
	Cache *repocache.Store

	// Follows lists the repository locators to index, typically the union
	// of the operator's list memberships.
	Follows func(ctx context.Context) ([]string, error)

	// Interval between refresh passes.
	Interval time.Duration
	// Number of repositories to refresh in parallel within a pass.
	Parallel int

	fetchLimiter *rate.Limiter
	logger       *slog.Logger
	stop         chan chan struct{}
}

type RefresherOptions struct {
	Interval time.Duration
	Parallel int
	// RefreshesPerSecond bounds how fast the pass walks repository
	// mirrors, across all workers.
	RefreshesPerSecond int
	Logger             *slog.Logger
}

func DefaultRefresherOptions() *RefresherOptions {
	return &RefresherOptions{
		Interval:           5 * time.Minute,
		Parallel:           4,
		RefreshesPerSecond: 8,
	}
}

// NewRefresher creates a Refresher over the given store and mirror cache.
func NewRefresher(store Store, cache *repocache.Store, follows func(ctx context.Context) ([]string, error), opts *RefresherOptions) *Refresher {
	if opts == nil {
		opts = DefaultRefresherOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("source", "feedindex")
	}
	return &Refresher{
		Store:        store,
		Cache:        cache,
		Follows:      follows,
		Interval:     opts.Interval,
		Parallel:     opts.Parallel,
		fetchLimiter: rate.NewLimiter(rate.Limit(opts.RefreshesPerSecond), 1),
		logger:       logger,
		stop:         make(chan chan struct{}, 1),
	}
}

// Start runs refresh passes until Stop is called. It refreshes once
// immediately and then on every interval tick.
func (r *Refresher) Start() {
	ctx := context.Background()

	r.logger.Info("starting feed index refresher", "interval", r.Interval)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		if err := r.RefreshAll(ctx); err != nil {
			r.logger.Error("refresh pass failed", "error", err)
		}

		select {
		case stopped := <-r.stop:
			r.logger.Info("stopping feed index refresher")
			close(stopped)
			return
		case <-ticker.C:
		}
	}
}

// Stop stops the refresher after any in-flight pass completes.
func (r *Refresher) Stop(ctx context.Context) error {
	stopped := make(chan struct{})
	r.stop <- stopped
	select {
	case <-stopped:
		r.logger.Info("feed index refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshAll rebuilds the index for every followed repository and returns
// once the pass is complete. Per-repository failures are recorded on the
// repository's state row and do not fail the pass; only being unable to
// list the follows does.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RefreshAll")
	defer span.End()

	repos, err := r.Follows(ctx)
	if err != nil {
		return fmt.Errorf("listing followed repositories: %w", err)
	}
	span.SetAttributes(attribute.Int("repos", len(repos)))

	parallel := int64(r.Parallel)
	if parallel < 1 {
		parallel = 1
	}
	sem := semaphore.NewWeighted(parallel)

	for _, locator := range repos {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func(locator string) {
			defer sem.Release(1)
			if err := r.refreshRepo(ctx, locator); err != nil {
				r.logger.Error("failed to refresh repository", "repo", locator, "error", err)
				refreshesProcessed.WithLabelValues("error").Inc()
				return
			}
			refreshesProcessed.WithLabelValues("ok").Inc()
		}(locator)
	}

	// Wait for in-flight refreshes.
	if err := sem.Acquire(ctx, parallel); err != nil {
		return err
	}
	sem.Release(parallel)
	return nil
}

func (r *Refresher) refreshRepo(ctx context.Context, locator string) error {
	ctx, span := tracer.Start(ctx, "refreshRepo")
	defer span.End()
	span.SetAttributes(attribute.String("repo", locator))

	if err := r.fetchLimiter.Wait(ctx); err != nil {
		return err
	}

	id, err := syntax.ParseRepoID(locator)
	if err != nil {
		r.markFailed(ctx, locator, err)
		return err
	}

	g, err := r.Cache.Open(ctx, id.Repository, id.Branch)
	if err != nil {
		r.markFailed(ctx, locator, err)
		return err
	}

	refs, err := g.ListSocialRefs(ctx)
	if err != nil {
		r.markFailed(ctx, locator, err)
		return fmt.Errorf("listing social pointers: %w", err)
	}

	commits, err := g.Log(ctx, vcs.LogOptions{Branch: id.Branch, Refs: refs})
	if err != nil {
		r.markFailed(ctx, locator, err)
		return fmt.Errorf("reading history: %w", err)
	}

	entries := timeline.Reconstruct(commits, locator, &timeline.Options{Logger: r.logger})
	if err := r.Store.PutEntries(ctx, locator, entries); err != nil {
		r.markFailed(ctx, locator, err)
		return fmt.Errorf("storing entries: %w", err)
	}
	entriesIndexed.Add(float64(len(entries)))

	return r.Store.MarkRefreshed(ctx, locator, len(entries), nil)
}

func (r *Refresher) markFailed(ctx context.Context, locator string, refreshErr error) {
	if err := r.Store.MarkRefreshed(ctx, locator, 0, refreshErr); err != nil {
		r.logger.Error("failed to record refresh failure", "repo", locator, "error", err)
	}
}
