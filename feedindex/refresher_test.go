package feedindex

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsocial/gitsocial/repocache"
	"github.com/gitsocial/gitsocial/timeline"
	"github.com/gitsocial/gitsocial/vcs"
)

// newMirror initializes a cached repository mirror for locator under base
// and returns a client for populating it.
func newMirror(t *testing.T, base, locator string) *vcs.Git {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := repocache.Dir(base, locator, "")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.name", "Alice"},
		{"config", "user.email", "alice@example.com"},
		{"config", "commit.gpgsign", "false"},
	} {
		mirrorGit(t, dir, args...)
	}
	return vcs.NewGit(dir, nil)
}

func mirrorGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

// postAt commits an empty post with a pinned author date so ordering
// assertions don't race the clock.
func postAt(t *testing.T, g *vcs.Git, message, date string) {
	t.Helper()
	mirrorGit(t, g.Dir(), "commit", "--allow-empty", "-m", message, "--date", date)
}

func TestRefreshAll(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	base := t.TempDir()
	locator := "https://example.com/alice/journal"
	g := newMirror(t, base, locator)

	postAt(t, g, "First post", "2024-01-01 10:00:00 +0000")
	postAt(t, g, "Second post", "2024-01-02 10:00:00 +0000")
	// written now, so strictly newer than the pinned posts
	_, err := g.WriteRefCommit(ctx, "social/lists/friends",
		`{"id":"friends","name":"Friends","repositories":["https://example.com/bob/notes"]}`)
	require.NoError(t, err)

	store := NewMemstore()
	r := NewRefresher(store, &repocache.Store{Base: base}, func(ctx context.Context) ([]string, error) {
		return []string{locator}, nil
	}, nil)

	require.NoError(t, r.RefreshAll(ctx))

	states, err := store.RepoStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(locator, states[0].Repository)
	assert.Empty(states[0].LastError)
	assert.Equal(3, states[0].Entries)

	entries, err := store.Timeline(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// the pointer write replays as a follow of the listed repository
	assert.Equal(string(timeline.TypeRepoFollow), entries[0].Type)
	assert.Contains(entries[0].Details, "https://example.com/bob/notes")
	assert.Equal("Second post", entries[1].Details)
	assert.Equal("First post", entries[2].Details)

	for _, e := range entries {
		assert.Equal(locator, e.Repository)
	}
	assert.True(strings.HasPrefix(entries[1].PostID, locator+"#commit:"), "post id %q", entries[1].PostID)
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	base := t.TempDir()
	cached := "https://example.com/alice/journal"
	g := newMirror(t, base, cached)
	postAt(t, g, "Only post", "2024-01-01 10:00:00 +0000")

	missing := "https://example.com/carol/pics"
	invalid := "https://example.com/dave/stuff#oops"

	store := NewMemstore()
	r := NewRefresher(store, &repocache.Store{Base: base}, func(ctx context.Context) ([]string, error) {
		return []string{cached, missing, invalid}, nil
	}, &RefresherOptions{Parallel: 2, RefreshesPerSecond: 100})

	// broken follows don't fail the pass
	require.NoError(t, r.RefreshAll(ctx))

	states, err := store.RepoStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)

	byRepo := make(map[string]RepoState)
	for _, st := range states {
		byRepo[st.Repository] = st
	}
	assert.Empty(byRepo[cached].LastError)
	assert.Equal(1, byRepo[cached].Entries)
	assert.Contains(byRepo[missing].LastError, repocache.ErrNotCached.Error())
	assert.NotEmpty(byRepo[invalid].LastError)

	entries, err := store.Timeline(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(cached, entries[0].Repository)
}

func TestRefresherStartStop(t *testing.T) {
	store := NewMemstore()
	r := NewRefresher(store, &repocache.Store{Base: t.TempDir()}, func(ctx context.Context) ([]string, error) {
		return nil, nil
	}, &RefresherOptions{Interval: 5 * time.Millisecond, Parallel: 2, RefreshesPerSecond: 100})

	done := make(chan struct{})
	go func() {
		r.Start()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("refresher did not stop")
	}
}
