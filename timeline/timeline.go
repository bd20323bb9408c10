// Package timeline replays raw repository history into an ordered log of
// typed social entries.
//
// Every commit is an implicit post unless proven otherwise: commits reached
// through reserved pointers become list, config, or metadata entries, and
// commits whose message decodes as a social action message become comments,
// reposts, or quotes. Commits on list pointers never surface literally;
// successive snapshot states are diffed and the membership changes are
// synthesized as follow and unfollow entries instead.
package timeline

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gitsocial/gitsocial/actions"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/vcs"
)

// EntryType is the closed set of reconstructed log entry types.
type EntryType string

const (
	TypePost         = EntryType("post")
	TypeComment      = EntryType("comment")
	TypeRepost       = EntryType("repost")
	TypeQuote        = EntryType("quote")
	TypeListCreate   = EntryType("list-create")
	TypeListDelete   = EntryType("list-delete")
	TypeConfig       = EntryType("config")
	TypeMetadata     = EntryType("metadata")
	TypeRepoFollow   = EntryType("repository-follow")
	TypeRepoUnfollow = EntryType("repository-unfollow")
)

// Author identifies who recorded a commit.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Payload retains the source material an entry was reconstructed from.
type Payload struct {
	Commit vcs.Commit

	// Message is the decoded action message, nil when the commit text does
	// not match the action grammar. Synthesized follow/unfollow entries
	// carry the synthetic message their details were formatted from.
	Message *actions.Message
}

// Entry is one reconstructed, typed record in the history view. Entries are
// immutable after construction and live only as long as the reconstruction
// result that contains them.
type Entry struct {
	// Hash is the 12-character prefix of the source commit hash.
	Hash    string
	Time    time.Time
	Author  Author
	Type    EntryType
	Details string

	// Repository identifies the repository the entry belongs to, empty for
	// the local repository.
	Repository string

	// PostID is the address of the post this entry represents, populated
	// only for post, comment, repost and quote entries.
	PostID syntax.PostID

	Raw Payload
}

// Options adjust a reconstruction run. The zero value keeps every entry.
type Options struct {
	// Types keeps only entries whose type is in the set. Empty keeps all.
	Types []EntryType

	Logger *slog.Logger
}

// Reconstruct replays commits into an ordered log of typed entries, newest
// first; equal timestamps keep their relative input order. Commits
// associated with reserved pointers classify by pointer name, everything
// else decodes through the action codec and defaults to a plain post. A
// commit that cannot be processed is skipped, never fatal: replayed stores
// are expected to contain records from independent and possibly older
// producers, and one bad record must not poison the batch.
//
// The commit list must be complete for the window being reconstructed: list
// snapshot diffs look up each snapshot's predecessor among the input
// commits sharing its pointer, so a truncated pointer history reads its
// oldest visible snapshot as the first.
func Reconstruct(commits []vcs.Commit, repoLocator string, opts *Options) []Entry {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("source", "timeline")
	}

	// The postId base strips any branch or list fragment from the locator;
	// a locator that does not parse is used untouched.
	baseRepo := repoLocator
	if id, err := syntax.ParseRepoID(repoLocator); err == nil {
		baseRepo = id.Repository
	}

	pointers := pointerHistories(commits)

	var out []Entry
	for _, c := range commits {
		out = append(out, classify(c, baseRepo, pointers, logger)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})

	if len(opts.Types) > 0 {
		keep := make(map[EntryType]bool, len(opts.Types))
		for _, t := range opts.Types {
			keep[t] = true
		}
		kept := out[:0]
		for _, e := range out {
			if keep[e.Type] {
				kept = append(kept, e)
			}
		}
		out = kept
	}
	return out
}

// classify maps one commit onto its log entries. Failures are contained
// here: a panic while classifying or formatting skips the commit and the
// replay carries on.
func classify(c vcs.Commit, baseRepo string, pointers map[string][]vcs.Commit, logger *slog.Logger) (entries []Entry) {
	defer func() {
		if r := recover(); r != nil {
			commitsSkipped.Inc()
			logger.Debug("skipping unprocessable commit", "hash", c.Hash, "panic", r)
			entries = nil
		}
	}()

	if c.Ref != "" && syntax.IsReservedPointer(c.Ref) {
		switch {
		case syntax.IsListPointer(c.Ref):
			return diffListSnapshot(c, pointers[c.Ref], baseRepo, logger)
		case c.Ref == syntax.PointerConfig:
			return []Entry{newEntry(c, TypeConfig, baseRepo, actions.Decode(c.Message))}
		default:
			return []Entry{newEntry(c, TypeMetadata, baseRepo, actions.Decode(c.Message))}
		}
	}

	msg := actions.Decode(c.Message)
	if msg != nil && msg.Namespace == actions.NamespaceSocial {
		switch msg.Type() {
		case actions.TypeComment:
			return []Entry{newEntry(c, TypeComment, baseRepo, msg)}
		case actions.TypeRepost:
			return []Entry{newEntry(c, TypeRepost, baseRepo, msg)}
		case actions.TypeQuote:
			return []Entry{newEntry(c, TypeQuote, baseRepo, msg)}
		}
	}
	return []Entry{newEntry(c, TypePost, baseRepo, msg)}
}

// newEntry builds one entry from a classified commit. Synthesized entries
// share the triggering commit's hash, timestamp, and author.
func newEntry(c vcs.Commit, t EntryType, baseRepo string, msg *actions.Message) Entry {
	e := Entry{
		Hash:       syntax.ShortHash(c.Hash),
		Time:       c.Time,
		Author:     Author{Name: c.AuthorName, Email: c.AuthorEmail},
		Type:       t,
		Details:    formatDetails(t, msg, c),
		Repository: baseRepo,
		Raw:        Payload{Commit: c, Message: msg},
	}
	switch t {
	case TypePost, TypeComment, TypeRepost, TypeQuote:
		e.PostID = syntax.NewPostID(syntax.RefKindCommit, syntax.ShortHash(c.Hash), baseRepo)
	}
	entriesReconstructed.WithLabelValues(string(t)).Inc()
	return e
}

// pointerHistories groups commits by reserved pointer, most recent first
// within each pointer whatever order the input arrived in.
func pointerHistories(commits []vcs.Commit) map[string][]vcs.Commit {
	hist := make(map[string][]vcs.Commit)
	for _, c := range commits {
		if c.Ref != "" && syntax.IsReservedPointer(c.Ref) {
			hist[c.Ref] = append(hist[c.Ref], c)
		}
	}
	for _, cs := range hist {
		sort.SliceStable(cs, func(i, j int) bool {
			return cs[i].Time.After(cs[j].Time)
		})
	}
	return hist
}
