package fakedata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/timeline"
)

func newSeedTarget() (*social.Service, *social.MockVCS) {
	mock := &social.MockVCS{Present: true}
	svc := social.NewService(&social.Options{
		OpenRepo: func(dir string) social.VCS { return mock },
	})
	return svc, mock
}

func TestSeed(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	svc, mock := newSeedTarget()
	g := NewGenerator(svc, 42)

	opts := &Options{Posts: 4, Comments: 3, Reposts: 2, Quotes: 1, Lists: 2, FollowsPerList: 2, Profile: true}
	stats, err := g.Seed(ctx, "/work/repo", opts)
	require.NoError(t, err)

	assert.Equal(&Stats{Posts: 4, Comments: 3, Reposts: 2, Quotes: 1, Lists: 2, Follows: 4}, stats)

	// content actions land as plain commits, list and config writes as
	// pointer snapshots
	assert.Len(mock.Committed, 10)
	require.Len(t, mock.RefWrites, 3)
	assert.Len(mock.RefWrites["social/config"], 1)

	entries, err := svc.GetLogs(ctx, "/work/repo", social.ScopeTimeline, nil)
	require.NoError(t, err)

	byType := make(map[timeline.EntryType]int)
	for _, e := range entries {
		byType[e.Type]++
	}
	assert.Equal(4, byType[timeline.TypePost])
	assert.Equal(3, byType[timeline.TypeComment])
	assert.Equal(2, byType[timeline.TypeRepost])
	assert.Equal(1, byType[timeline.TypeQuote])
	assert.Equal(2, byType[timeline.TypeListCreate])
	assert.Equal(4, byType[timeline.TypeRepoFollow])
	assert.Equal(1, byType[timeline.TypeConfig])
}

func TestSeedDeterministic(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	opts := &Options{Posts: 5, Comments: 4, Reposts: 1, Quotes: 1}

	svcA, mockA := newSeedTarget()
	_, err := NewGenerator(svcA, 7).Seed(ctx, "/work/repo", opts)
	require.NoError(t, err)

	svcB, mockB := newSeedTarget()
	_, err = NewGenerator(svcB, 7).Seed(ctx, "/work/repo", opts)
	require.NoError(t, err)

	assert.Equal(mockA.Committed, mockB.Committed)
}

func TestSeedDefaults(t *testing.T) {
	assert := assert.New(t)

	svc, _ := newSeedTarget()
	stats, err := NewGenerator(svc, 1).Seed(context.Background(), "/work/repo", nil)
	require.NoError(t, err)

	assert.Equal(10, stats.Posts)
	assert.Equal(5, stats.Comments)
	assert.Equal(1, stats.Lists)
	assert.Equal(3, stats.Follows)
}

func TestSeedWithoutPosts(t *testing.T) {
	assert := assert.New(t)

	svc, mock := newSeedTarget()
	stats, err := NewGenerator(svc, 1).Seed(context.Background(), "/work/repo",
		&Options{Comments: 3, Reposts: 2})
	require.NoError(t, err)

	// nothing to target, so nothing referential gets generated
	assert.Equal(&Stats{}, stats)
	assert.Empty(mock.Committed)
}

func TestSeedPropagatesErrors(t *testing.T) {
	assert := assert.New(t)

	svc, mock := newSeedTarget()
	mock.Err = errors.New("disk full")

	stats, err := NewGenerator(svc, 1).Seed(context.Background(), "/work/repo", nil)
	assert.ErrorContains(err, "generating post")
	assert.ErrorContains(err, "disk full")
	assert.Equal(0, stats.Posts)
}
