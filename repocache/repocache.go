// Package repocache resolves the local cache directories where non-local
// repositories are mirrored for history reconstruction.
//
// The cache itself is passive: nothing here fetches. Something else (a
// background refresher, a manual clone) populates the directories, and
// readers get ErrNotCached until that happens.
package repocache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/gitsocial/gitsocial/vcs"
)

// ErrNotCached marks a repository that has no local mirror yet.
var ErrNotCached = errors.New("repository not cached")

// DefaultBase returns the conventional cache root under the user's XDG
// cache home.
func DefaultBase() string {
	return filepath.Join(xdg.CacheHome, "gitsoc", "repos")
}

// Dir maps a repository locator and branch to its cache directory under
// base. Both segments are path-escaped so locators containing separators
// cannot climb out of the base.
func Dir(base, repository, branch string) string {
	if branch == "" {
		branch = "default"
	}
	return filepath.Join(base, url.PathEscape(repository), url.PathEscape(branch))
}

// Store opens cached repository mirrors beneath one base directory.
type Store struct {
	// Base is the cache root, typically DefaultBase().
	Base string

	// Git configures the clients Open returns.
	Git *vcs.Options
}

// Dir returns the cache directory for a repository and branch.
func (s *Store) Dir(repository, branch string) string {
	return Dir(s.Base, repository, branch)
}

// Open returns a client for a repository's cached mirror, or ErrNotCached
// when the directory does not hold a repository yet.
func (s *Store) Open(ctx context.Context, repository, branch string) (*vcs.Git, error) {
	dir := s.Dir(repository, branch)
	g := vcs.NewGit(dir, s.Git)
	if !g.IsRepo(ctx) {
		return nil, fmt.Errorf("%w: %s (looked in %s)", ErrNotCached, repository, dir)
	}
	return g, nil
}
