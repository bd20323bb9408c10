// Package feedindex persists reconstructed log entries so the daemon can
// serve a merged cross-repository timeline without replaying every
// repository's history on every read.
//
// The index is a materialized view: the refresher rebuilds each followed
// repository's entries from its cached mirror and swaps them in wholesale.
// Nothing here is authoritative; the repositories are.
package feedindex

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/gitsocial/gitsocial/timeline"
)

// Entry is one indexed log entry row. Synthesized entries share their
// triggering commit's hash, so (repository, hash) is deliberately not
// unique.
type Entry struct {
	gorm.Model
	Repository  string `gorm:"index"`
	Hash        string `gorm:"index"`
	Type        string `gorm:"index"`
	Time        time.Time
	AuthorName  string
	AuthorEmail string
	Details     string
	PostID      string
	Body        string
}

// RepoState is refresh bookkeeping for one followed repository.
type RepoState struct {
	gorm.Model
	Repository  string `gorm:"uniqueIndex"`
	LastRefresh time.Time
	LastError   string
	Entries     int
}

// Query selects indexed entries.
type Query struct {
	// Repository restricts to one repository, empty for all.
	Repository string

	// Types keeps only entries of the given types.
	Types []timeline.EntryType

	Since *time.Time

	// Limit caps the result, zero for no cap.
	Limit int
}

// Store is the persistence surface of the feed index.
type Store interface {
	// PutEntries replaces a repository's indexed entries with a fresh
	// reconstruction.
	PutEntries(ctx context.Context, repository string, entries []timeline.Entry) error

	// Timeline returns indexed entries newest first.
	Timeline(ctx context.Context, q Query) ([]Entry, error)

	// MarkRefreshed records the outcome of one repository refresh.
	MarkRefreshed(ctx context.Context, repository string, count int, refreshErr error) error

	// RepoStates returns the refresh bookkeeping for every known
	// repository, ordered by locator.
	RepoStates(ctx context.Context) ([]RepoState, error)
}

func fromTimeline(repository string, e timeline.Entry) Entry {
	body := e.Raw.Commit.Message
	if e.Raw.Message != nil {
		body = e.Raw.Message.Body
	}
	return Entry{
		Repository:  repository,
		Hash:        e.Hash,
		Type:        string(e.Type),
		Time:        e.Time,
		AuthorName:  e.Author.Name,
		AuthorEmail: e.Author.Email,
		Details:     e.Details,
		PostID:      string(e.PostID),
		Body:        body,
	}
}
