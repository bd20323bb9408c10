package timeline

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/vcs"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// commitAt builds a test commit n seconds after the epoch. Hashes are padded
// to look like real ones so short-prefix behavior is exercised.
func commitAt(hash, message string, n int) vcs.Commit {
	full := hash
	for len(full) < 40 {
		full += "0"
	}
	return vcs.Commit{
		Hash:        full,
		AuthorName:  "Alice",
		AuthorEmail: "alice@example.com",
		Time:        testEpoch.Add(time.Duration(n) * time.Second),
		Message:     message,
	}
}

func refCommitAt(hash, ref, message string, n int) vcs.Commit {
	c := commitAt(hash, message, n)
	c.Ref = ref
	return c
}

func TestReconstructPlainPosts(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		commitAt("bbbb", "Post 2", 10),
		commitAt("aaaa", "Post 1", 0),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 2)

	assert.Equal(TypePost, entries[0].Type)
	assert.Equal(TypePost, entries[1].Type)
	assert.Equal("Post 2", entries[0].Details)
	assert.Equal("Post 1", entries[1].Details)
	assert.Equal("Alice", entries[0].Author.Name)
	assert.Equal("alice@example.com", entries[0].Author.Email)
	assert.Len(entries[0].Hash, 12)
	assert.Equal(syntax.PostID("#commit:bbbb00000000"), entries[0].PostID)
	assert.Equal("", entries[0].Repository)
	assert.Nil(entries[0].Raw.Message)
}

func TestReconstructOrdering(t *testing.T) {
	assert := assert.New(t)

	// two commits share a timestamp; stable sort keeps their input order
	commits := []vcs.Commit{
		commitAt("cccc", "middle", 5),
		commitAt("dddd", "tie first", 5),
		commitAt("eeee", "oldest", 0),
		commitAt("ffff", "newest", 9),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 4)

	assert.Equal("newest", entries[0].Details)
	assert.Equal("middle", entries[1].Details)
	assert.Equal("tie first", entries[2].Details)
	assert.Equal("oldest", entries[3].Details)
	for i := 0; i+1 < len(entries); i++ {
		assert.False(entries[i].Time.Before(entries[i+1].Time))
	}
}

func TestReconstructIdempotent(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		commitAt("aaaa", "Post", 3),
		refCommitAt("bbbb", "social/lists/reading", `{"id":"reading","repositories":["repoA"]}`, 2),
		commitAt("cccc", "[gitsocial:social] social:type=comment\n\nnice\n\n[gitsocial:ref] kind=original social:id=#commit:aaaa00000000\n> Post", 1),
	}
	first := Reconstruct(commits, "", nil)
	second := Reconstruct(commits, "", nil)
	assert.True(reflect.DeepEqual(first, second))
}

func TestReconstructClassification(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		commitAt("a1", "plain text post", 6),
		commitAt("a2", "[gitsocial:social] social:type=comment\n\nagreed\n\n[gitsocial:ref] kind=original social:id=#commit:a10000000000\n> plain text post", 5),
		commitAt("a3", "[gitsocial:social] social:type=repost\n\n[gitsocial:ref] kind=original social:id=#commit:a10000000000\n> plain text post", 4),
		commitAt("a4", "[gitsocial:social] social:type=quote\n\nlook at this\n\n[gitsocial:ref] kind=original social:id=#commit:a10000000000\n> plain text post", 3),
		// other extension namespaces and unknown social types stay posts
		commitAt("a5", "[gitsocial:calendar] event=standup\n\ndaily standup", 2),
		commitAt("a6", "[gitsocial:social] social:type=like\n\n???", 1),
		// malformed header degrades to a plain post of the raw text
		commitAt("a7", "[gitsocial:social] social:type=\"unterminated\n\nbody", 0),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 7)

	types := make([]EntryType, 0, len(entries))
	for _, e := range entries {
		types = append(types, e.Type)
	}
	assert.Equal([]EntryType{TypePost, TypeComment, TypeRepost, TypeQuote, TypePost, TypePost, TypePost}, types)

	assert.Equal("Re: plain text post", entries[1].Details)
	assert.Equal("Repost: plain text post", entries[2].Details)
	assert.Equal("Quote: plain text post", entries[3].Details)
	// decodable non-social message: details come from the decoded body
	assert.Equal("daily standup", entries[4].Details)
	assert.Equal("[gitsocial:social] social:type=\"unterminated", entries[6].Details)
}

func TestReconstructCommentWithoutExcerpt(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		commitAt("b1", "[gitsocial:social] social:type=comment\n\nreply\n\n[gitsocial:ref] kind=original social:id=#commit:cafe00000000", 0),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 1)
	assert.Equal("Re: post", entries[0].Details)
}

func TestReconstructConfigAndMetadata(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		refCommitAt("c1", "social/config", `{"name":"alice"}`, 3),
		refCommitAt("c2", "social/profile", "[gitsocial:social]\n\nUpdated avatar", 2),
		refCommitAt("c3", "social/state", "", 1),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 3)

	assert.Equal(TypeConfig, entries[0].Type)
	assert.Equal(`{"name":"alice"}`, entries[0].Details)
	assert.Equal(syntax.PostID(""), entries[0].PostID)

	assert.Equal(TypeMetadata, entries[1].Type)
	assert.Equal("Updated avatar", entries[1].Details)

	assert.Equal(TypeMetadata, entries[2].Type)
	assert.Equal("No message", entries[2].Details)
}

func TestListDiffLaw(t *testing.T) {
	assert := assert.New(t)

	s1 := `{"id":"reading","name":"Reading","repositories":["repoA","repoB","repoC"]}`
	s2 := `{"id":"reading","name":"Reading","repositories":["repoB","repoD"]}`
	commits := []vcs.Commit{
		refCommitAt("f2", "social/lists/reading", s2, 10),
		refCommitAt("f1", "social/lists/reading", s1, 5),
	}
	entries := Reconstruct(commits, "", nil)

	var follows, unfollows []string
	for _, e := range entries {
		if e.Hash != "f20000000000" {
			continue
		}
		switch e.Type {
		case TypeRepoFollow:
			follows = append(follows, e.Raw.Message.Fields["social:repo"])
		case TypeRepoUnfollow:
			unfollows = append(unfollows, e.Raw.Message.Fields["social:repo"])
		}
	}
	assert.Equal([]string{"repoD"}, follows)
	assert.Equal([]string{"repoA", "repoC"}, unfollows)

	// the first snapshot has no predecessor: everything reads as followed
	var initial []string
	for _, e := range entries {
		if e.Hash == "f10000000000" && e.Type == TypeRepoFollow {
			initial = append(initial, e.Raw.Message.Fields["social:repo"])
		}
	}
	assert.Equal([]string{"repoA", "repoB", "repoC"}, initial)
}

func TestListDiffNoChange(t *testing.T) {
	assert := assert.New(t)

	same := `{"id":"reading","repositories":["repoA"]}`
	commits := []vcs.Commit{
		refCommitAt("e2", "social/lists/reading", same, 10),
		refCommitAt("e1", "social/lists/reading", same, 5),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 2)

	// newest snapshot changed nothing: a single list-create "updated" entry
	assert.Equal(TypeListCreate, entries[0].Type)
	assert.Equal(`Updated list "reading"`, entries[0].Details)

	// the initial snapshot reads its whole membership as newly followed
	assert.Equal(TypeRepoFollow, entries[1].Type)
	assert.Contains(entries[1].Details, "repoA")

	for _, e := range entries {
		if e.Hash == "e20000000000" {
			assert.NotEqual(TypeRepoFollow, e.Type)
			assert.NotEqual(TypeRepoUnfollow, e.Type)
		}
	}
}

func TestListCreateEntry(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		refCommitAt("d1", "social/lists/reading", `{"id":"reading","name":"My Reading","repositories":[]}`, 0),
	}
	entries := Reconstruct(commits, "", nil)
	require.Len(t, entries, 1)
	assert.Equal(TypeListCreate, entries[0].Type)
	assert.Equal(`Created list "My Reading"`, entries[0].Details)
}

func TestListFollowScenario(t *testing.T) {
	assert := assert.New(t)

	// snapshot membership grows from empty to one repository
	commits := []vcs.Commit{
		refCommitAt("a2", "social/lists/reading", `{"repositories":["repoA"]}`, 10),
		refCommitAt("a1", "social/lists/reading", `{"repositories":[]}`, 5),
	}
	entries := Reconstruct(commits, "", nil)

	var follows []Entry
	for _, e := range entries {
		assert.NotEqual(TypeRepoUnfollow, e.Type)
		if e.Type == TypeRepoFollow {
			follows = append(follows, e)
		}
	}
	require.Len(t, follows, 1)
	assert.Contains(follows[0].Details, "repoA")
	assert.Contains(follows[0].Details, "reading")
}

func TestListSnapshotMalformed(t *testing.T) {
	assert := assert.New(t)

	// malformed snapshot decodes as empty: previous membership reads as
	// removed, and the log still reconstructs
	commits := []vcs.Commit{
		refCommitAt("b2", "social/lists/reading", "this is not json", 10),
		refCommitAt("b1", "social/lists/reading", `{"repositories":["repoA"]}`, 5),
	}
	entries := Reconstruct(commits, "", nil)

	var got []EntryType
	for _, e := range entries {
		if e.Hash == "b20000000000" {
			got = append(got, e.Type)
		}
	}
	assert.Equal([]EntryType{TypeRepoUnfollow}, got)
}

func TestFilterLaw(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{
		commitAt("a1", "Post", 6),
		commitAt("a2", "[gitsocial:social] social:type=comment\n\nagreed\n\n[gitsocial:ref] kind=original social:id=#commit:a10000000000", 5),
		refCommitAt("a3", "social/lists/reading", `{"repositories":["repoA"]}`, 4),
		refCommitAt("a4", "social/config", "config update", 3),
	}

	keep := []EntryType{TypePost, TypeRepoFollow}
	filtered := Reconstruct(commits, "", &Options{Types: keep})

	all := Reconstruct(commits, "", nil)
	var manual []Entry
	for _, e := range all {
		if e.Type == TypePost || e.Type == TypeRepoFollow {
			manual = append(manual, e)
		}
	}
	assert.True(reflect.DeepEqual(filtered, manual))
	require.Len(t, filtered, 2)
	assert.Equal(TypePost, filtered[0].Type)
	assert.Equal(TypeRepoFollow, filtered[1].Type)
}

func TestRepositoryLocatorStripping(t *testing.T) {
	assert := assert.New(t)

	commits := []vcs.Commit{commitAt("aaaa", "Post", 0)}

	entries := Reconstruct(commits, "https://example.com/alice/journal#branch:main", nil)
	require.Len(t, entries, 1)
	assert.Equal("https://example.com/alice/journal", entries[0].Repository)
	assert.Equal(syntax.PostID("https://example.com/alice/journal#commit:aaaa00000000"), entries[0].PostID)

	// a locator that does not parse is used untouched
	entries = Reconstruct(commits, "not a parseable locator", nil)
	require.Len(t, entries, 1)
	assert.Equal("not a parseable locator", entries[0].Repository)
}

func TestReconstructManyMixed(t *testing.T) {
	assert := assert.New(t)

	var commits []vcs.Commit
	for i := 0; i < 50; i++ {
		commits = append(commits, commitAt(fmt.Sprintf("%04x", i), fmt.Sprintf("Post %d", i), 100-i))
	}
	commits = append(commits, refCommitAt("ff01", "social/lists/all", `{"repositories":["r1","r2"]}`, 200))

	entries := Reconstruct(commits, "", nil)
	assert.Len(entries, 52)
	assert.Equal(TypeRepoFollow, entries[0].Type)
	assert.Equal(TypeRepoFollow, entries[1].Type)
}

func TestSnapshotRoundTrip(t *testing.T) {
	assert := assert.New(t)

	snap := ListSnapshot{ID: "reading", Name: "Reading", Repositories: []string{"a", "b"}}
	assert.Equal(snap, DecodeSnapshot(EncodeSnapshot(snap)))

	empty := DecodeSnapshot(EncodeSnapshot(ListSnapshot{}))
	assert.Equal("", empty.ID)
	assert.Empty(empty.Repositories)

	assert.Equal(ListSnapshot{}, DecodeSnapshot("not json"))
	assert.Equal(ListSnapshot{}, DecodeSnapshot(""))
}
