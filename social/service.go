// Package social orchestrates the social layer of git repositories: it
// publishes actions as commits and snapshot pointers, and replays history
// back into typed log entries through the reconstruction engine.
//
// The service itself holds no repository state. Every call names the
// working directory (or a remote scope) explicitly, so one Service can
// serve any number of repositories concurrently.
package social

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gitsocial/gitsocial/repocache"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/timeline"
	"github.com/gitsocial/gitsocial/vcs"
)

var tracer = otel.Tracer("gitsocial/social")

// Scope literals accepted by GetLogs beside decorated repository
// identifiers.
const (
	// ScopeMy reads the local repository's working branch plus its
	// reserved pointers.
	ScopeMy = "repository:my"

	// ScopeTimeline reads every content branch of the local repository
	// plus its reserved pointers.
	ScopeTimeline = "repository:timeline"
)

// VCS is the version-control surface the service consumes. *vcs.Git
// implements it; tests substitute MockVCS.
type VCS interface {
	IsRepo(ctx context.Context) bool
	CurrentBranch(ctx context.Context) (string, error)
	ListSocialRefs(ctx context.Context) ([]string, error)
	Log(ctx context.Context, opts vcs.LogOptions) ([]vcs.Commit, error)
	Show(ctx context.Context, rev string) (vcs.Commit, error)
	CommitEmpty(ctx context.Context, message string) (string, error)
	WriteRefCommit(ctx context.Context, ref, message string) (string, error)
	DeleteRef(ctx context.Context, ref string) error
}

var _ VCS = (*vcs.Git)(nil)

// Filter narrows a GetLogs read. The zero value keeps everything.
type Filter struct {
	Since *time.Time
	Until *time.Time

	// Limit caps the number of entries returned, zero for no cap.
	Limit int

	// Types keeps only entries of the given types.
	Types []timeline.EntryType

	// CacheBase locates cached mirrors of non-local repositories. Required
	// when the scope names a repository, unused otherwise.
	CacheBase string
}

// Options configure a Service.
type Options struct {
	// Git configures the vcs clients the service opens.
	Git *vcs.Options

	Logger *slog.Logger

	// OpenRepo overrides how a repository directory becomes a VCS client.
	// Tests use it to substitute mocks.
	OpenRepo func(dir string) VCS
}

// Service resolves scopes to repositories, gathers their commit and pointer
// history, and replays it through the reconstruction engine. Safe for
// concurrent use.
type Service struct {
	open   func(dir string) VCS
	logger *slog.Logger
}

func NewService(opts *Options) *Service {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("source", "social")
	}
	open := opts.OpenRepo
	if open == nil {
		git := opts.Git
		open = func(dir string) VCS { return vcs.NewGit(dir, git) }
	}
	return &Service{open: open, logger: logger}
}

// GetLogs reconstructs the ordered social log for a scope: ScopeMy for the
// working branch of the repository at dir, ScopeTimeline for all of its
// content branches, or a decorated repository identifier for a cached
// remote repository. Per-record failures never surface; a panic escaping
// reconstruction is converted into a single ErrOperationFailed result.
func (s *Service) GetLogs(ctx context.Context, dir, scope string, filter *Filter) (entries []timeline.Entry, err error) {
	ctx, span := tracer.Start(ctx, "GetLogs")
	defer span.End()
	span.SetAttributes(attribute.String("scope", scope))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("log reconstruction panicked", "scope", scope, "panic", r)
			entries = nil
			err = fmt.Errorf("%w: %v", ErrOperationFailed, r)
		}
	}()

	if filter == nil {
		filter = &Filter{}
	}

	res, err := s.resolveScope(ctx, dir, scope, filter)
	if err != nil {
		return nil, err
	}

	refs, err := res.repo.ListSocialRefs(ctx)
	if err != nil {
		return nil, err
	}

	walk := res.walk
	walk.Refs = refs
	walk.Since = filter.Since
	walk.Until = filter.Until
	walk.Limit = filter.Limit

	commits, err := res.repo.Log(ctx, walk)
	if err != nil {
		return nil, err
	}

	entries = timeline.Reconstruct(commits, res.locator, &timeline.Options{
		Types:  filter.Types,
		Logger: s.logger,
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

// resolvedScope is a scope bound to a concrete repository: the client to
// read it with, the locator entries should carry ("" for the local
// repository), and the branch walk to run.
type resolvedScope struct {
	repo    VCS
	locator string
	walk    vcs.LogOptions
}

func (s *Service) resolveScope(ctx context.Context, dir, scope string, filter *Filter) (*resolvedScope, error) {
	switch scope {
	case ScopeMy:
		return &resolvedScope{repo: s.open(dir)}, nil
	case ScopeTimeline:
		return &resolvedScope{repo: s.open(dir), walk: vcs.LogOptions{AllBranches: true}}, nil
	}

	id, err := syntax.ParseRepoID(scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScope, scope)
	}
	if filter.CacheBase == "" {
		return nil, ErrCacheBaseRequired
	}

	cacheDir := repocache.Dir(filter.CacheBase, id.Repository, id.Branch)
	repo := s.open(cacheDir)
	if !repo.IsRepo(ctx) {
		return nil, fmt.Errorf("%w: %s (looked in %s)", repocache.ErrNotCached, id.Repository, cacheDir)
	}
	return &resolvedScope{
		repo:    repo,
		locator: scope,
		walk:    vcs.LogOptions{Branch: id.Branch},
	}, nil
}
