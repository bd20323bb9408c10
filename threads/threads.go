// Package threads reassembles reply trees from flat post collections.
//
// Posts arrive as an unordered pile of records whose only structure is a
// pair of optional references: the thread original a post belongs to, and
// the specific comment it answers. The functions here are pure and
// synchronous; they hold no state beyond the traversal's own seen set, so
// callers are free to fetch and merge post collections however they like
// before handing them over.
package threads

import (
	"sort"
	"time"

	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/timeline"
)

// SortMode selects sibling ordering for thread views.
type SortMode string

const (
	// SortTop ranks by comment count, most-discussed first.
	SortTop = SortMode("top")
	// SortLatest orders newest first.
	SortLatest = SortMode("latest")
	// SortOldest orders oldest first, the order a conversation was written.
	SortOldest = SortMode("oldest")
)

// Counts tallies the interactions recorded against one post.
type Counts struct {
	Comments int `json:"comments"`
	Reposts  int `json:"reposts"`
	Quotes   int `json:"quotes"`
}

// Post is one node candidate for thread reconstruction: a reconstructed
// post, comment, repost, or quote plus the references that place it.
type Post struct {
	ID         syntax.PostID      `json:"id"`
	Repository string             `json:"repository,omitempty"`
	Author     timeline.Author    `json:"author"`
	Time       time.Time          `json:"time"`
	Body       string             `json:"body"`
	Type       timeline.EntryType `json:"type"`

	// OriginalPostID addresses the thread root this post belongs to, when
	// it is a comment, repost, or quote.
	OriginalPostID syntax.PostID `json:"originalPostId,omitempty"`

	// ParentCommentID addresses the specific comment this post answers,
	// when it is a nested reply rather than a top-level one.
	ParentCommentID syntax.PostID `json:"parentCommentId,omitempty"`

	Counts Counts `json:"counts"`
}

// MatchesPostID reports whether two addresses identify the same post,
// including the cross-repository case where both carry the same commit hash
// under different repository prefixes.
func MatchesPostID(a, b syntax.PostID) bool {
	return syntax.SamePost(a, b)
}

// threadKey canonicalizes an address for map keying so that the
// cross-repository identity of MatchesPostID carries over to set and index
// lookups. Commit-addressed posts key on the bare hash; anything else keys
// on the literal address.
func threadKey(id syntax.PostID) string {
	if r := id.Ref(); r.Kind == syntax.RefKindCommit {
		return "commit:" + r.Value
	}
	return string(id)
}

// Find locates a post by address within a flat collection.
func Find(posts []Post, id syntax.PostID) (Post, bool) {
	for i := range posts {
		if MatchesPostID(posts[i].ID, id) {
			return posts[i], true
		}
	}
	return Post{}, false
}

// BuildParentChildMap indexes which posts have at least one reply beneath
// them, keyed by canonical thread key. A repost's original reference does
// not count: reposts are not thread nodes, so they confer no children.
func BuildParentChildMap(posts []Post) map[string]bool {
	parents := make(map[string]bool)
	for i := range posts {
		if posts[i].OriginalPostID != "" && posts[i].Type != timeline.TypeRepost {
			parents[threadKey(posts[i].OriginalPostID)] = true
		}
		if posts[i].ParentCommentID != "" {
			parents[threadKey(posts[i].ParentCommentID)] = true
		}
	}
	return parents
}

// HasReplies reports whether the parent-child index built by
// BuildParentChildMap records any reply beneath the given post.
func HasReplies(parents map[string]bool, id syntax.PostID) bool {
	return parents[threadKey(id)]
}

// CalculateDepth computes how many reply hops separate post from anchor:
// zero when they are the same post, positive when post sits beneath anchor,
// negative when post is an ancestor of anchor. When no chain connects the
// two it also returns zero, so callers distinguish "unrelated" from
// identity by checking MatchesPostID first.
func CalculateDepth(post, anchor Post, all []Post) int {
	if MatchesPostID(post.ID, anchor.ID) {
		return 0
	}
	if d, ok := ancestorDistance(post, anchor.ID, all); ok {
		return d
	}
	if d, ok := ancestorDistance(anchor, post.ID, all); ok {
		return -d
	}
	return 0
}

// ancestorDistance walks from's ancestor chain upward, preferring the
// comment parent over the thread original at each hop, and reports how many
// hops reach target. The seen set terminates corrupted cyclic chains.
func ancestorDistance(from Post, target syntax.PostID, all []Post) (int, bool) {
	seen := map[string]bool{threadKey(from.ID): true}
	cur := from
	for depth := 1; ; depth++ {
		parentID := cur.ParentCommentID
		if parentID == "" {
			parentID = cur.OriginalPostID
		}
		if parentID == "" {
			return 0, false
		}
		if MatchesPostID(parentID, target) {
			return depth, true
		}
		parent, ok := Find(all, parentID)
		if !ok || seen[threadKey(parent.ID)] {
			return 0, false
		}
		seen[threadKey(parent.ID)] = true
		cur = parent
	}
}

// SortPosts orders a copy of posts by mode: SortTop by comment count with
// newest-first ties, SortLatest newest first, SortOldest oldest first. An
// unrecognized mode keeps the input order rather than failing, so callers
// can pass user input straight through. The input slice is never mutated.
func SortPosts(posts []Post, mode SortMode) []Post {
	out := make([]Post, len(posts))
	copy(out, posts)
	switch mode {
	case SortTop:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Counts.Comments != out[j].Counts.Comments {
				return out[i].Counts.Comments > out[j].Counts.Comments
			}
			return out[i].Time.After(out[j].Time)
		})
	case SortLatest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Time.After(out[j].Time)
		})
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Time.Before(out[j].Time)
		})
	}
	return out
}

// SortThreadTree flattens the reply tree beneath rootID into pre-order:
// each reply followed immediately by its fully expanded subtree. The
// requested mode governs sibling order at the top level only; every deeper
// level is chronological regardless, so a popularity-ranked view still
// reads nested conversations in the order they were written. Reposts never
// enter the tree, and the traversal emits each post at most once even when
// references loop or duplicate.
func SortThreadTree(rootID syntax.PostID, all []Post, mode SortMode) []Post {
	seen := map[string]bool{threadKey(rootID): true}
	return collectReplies(rootID, all, mode, 1, seen)
}

func collectReplies(parentID syntax.PostID, all []Post, mode SortMode, depth int, seen map[string]bool) []Post {
	var children []Post
	for i := range all {
		if isDirectChild(all[i], parentID) && !seen[threadKey(all[i].ID)] {
			children = append(children, all[i])
		}
	}
	levelMode := mode
	if depth > 1 {
		levelMode = SortOldest
	}
	children = SortPosts(children, levelMode)

	var out []Post
	for _, child := range children {
		key := threadKey(child.ID)
		// an earlier sibling's subtree may have emitted this post already
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, child)
		out = append(out, collectReplies(child.ID, all, mode, depth+1, seen)...)
	}
	return out
}

// isDirectChild reports whether post replies directly to parentID: its
// comment parent matches, or it is a top-level reply whose original matches
// and which names no comment parent. Reposts are never children.
func isDirectChild(post Post, parentID syntax.PostID) bool {
	if post.Type == timeline.TypeRepost {
		return false
	}
	if post.ParentCommentID != "" {
		return MatchesPostID(post.ParentCommentID, parentID)
	}
	return post.OriginalPostID != "" && MatchesPostID(post.OriginalPostID, parentID)
}
