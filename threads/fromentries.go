package threads

import (
	"github.com/gitsocial/gitsocial/actions"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/timeline"
)

// PostsFromEntries projects reconstructed log entries into thread posts,
// keeping only the entry types that can appear in threads and folding
// interaction counts onto each post's direct target.
func PostsFromEntries(entries []timeline.Entry) []Post {
	var posts []Post
	for _, e := range entries {
		switch e.Type {
		case timeline.TypePost, timeline.TypeComment, timeline.TypeRepost, timeline.TypeQuote:
		default:
			continue
		}
		p := Post{
			ID:         e.PostID,
			Repository: e.Repository,
			Author:     e.Author,
			Time:       e.Time,
			Body:       entryBody(e),
			Type:       e.Type,
		}
		if msg := e.Raw.Message; msg != nil {
			if ref := msg.FindRef(actions.RefOriginal); ref != nil {
				p.OriginalPostID = syntax.PostID(ref.Fields[actions.FieldID])
			}
			if ref := msg.FindRef(actions.RefParent); ref != nil {
				p.ParentCommentID = syntax.PostID(ref.Fields[actions.FieldID])
			}
		}
		posts = append(posts, p)
	}
	tallyCounts(posts)
	return posts
}

// entryBody is the full text a post displays: the decoded action body when
// the commit carried one, otherwise the raw commit message.
func entryBody(e timeline.Entry) string {
	if e.Raw.Message != nil {
		return e.Raw.Message.Body
	}
	return e.Raw.Commit.Message
}

// tallyCounts increments each interaction onto its direct target: a comment
// counts toward the post it answers (the comment parent when one is named,
// the original otherwise), a repost or quote toward its original.
func tallyCounts(posts []Post) {
	index := make(map[string]*Post, len(posts))
	for i := range posts {
		index[threadKey(posts[i].ID)] = &posts[i]
	}
	bump := func(target syntax.PostID, f func(*Counts)) {
		if target == "" {
			return
		}
		if t, ok := index[threadKey(target)]; ok {
			f(&t.Counts)
		}
	}
	for i := range posts {
		switch posts[i].Type {
		case timeline.TypeComment:
			target := posts[i].ParentCommentID
			if target == "" {
				target = posts[i].OriginalPostID
			}
			bump(target, func(c *Counts) { c.Comments++ })
		case timeline.TypeRepost:
			bump(posts[i].OriginalPostID, func(c *Counts) { c.Reposts++ })
		case timeline.TypeQuote:
			bump(posts[i].OriginalPostID, func(c *Counts) { c.Quotes++ })
		}
	}
}
