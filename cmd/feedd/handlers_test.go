package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsocial/gitsocial/feedindex"
	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/timeline"
	"github.com/gitsocial/gitsocial/vcs"
)

func testServer(t *testing.T, mock *social.MockVCS) *Server {
	t.Helper()
	svc := social.NewService(&social.Options{
		OpenRepo: func(dir string) social.VCS { return mock },
	})
	return &Server{
		store:     feedindex.NewMemstore(),
		logs:      svc,
		repoDir:   "/work/repo",
		cacheBase: t.TempDir(),
	}
}

func getJSON(t *testing.T, handler func(echo.Context) error, target string, out any) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	if err == nil && out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec, err
}

func TestHandleHealth(t *testing.T) {
	assert := assert.New(t)
	srv := testServer(t, &social.MockVCS{Present: true})

	var status GenericStatus
	rec, err := getJSON(t, srv.handleHealth, "/_health", &status)
	require.NoError(t, err)
	assert.Equal(200, rec.Code)
	assert.Equal(GenericStatus{Daemon: "feedd", Status: "ok"}, status)
}

func TestHandleTimeline(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	srv := testServer(t, &social.MockVCS{Present: true})

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := func(hash string, typ timeline.EntryType, n int) timeline.Entry {
		return timeline.Entry{
			Hash:    hash,
			Time:    base.Add(time.Duration(n) * time.Minute),
			Author:  timeline.Author{Name: "Alice", Email: "alice@example.com"},
			Type:    typ,
			Details: "entry " + hash,
			Raw:     timeline.Payload{Commit: vcs.Commit{Hash: hash, Message: "entry " + hash}},
		}
	}
	require.NoError(t, srv.store.PutEntries(ctx, "https://a.example/journal", []timeline.Entry{
		entry("aaa2", timeline.TypePost, 30),
		entry("aaa1", timeline.TypeComment, 10),
	}))
	require.NoError(t, srv.store.PutEntries(ctx, "https://b.example/notes", []timeline.Entry{
		entry("bbb1", timeline.TypePost, 20),
	}))

	var resp timelineResponse
	rec, err := getJSON(t, srv.handleTimeline, "/timeline", &resp)
	require.NoError(t, err)
	assert.Equal(200, rec.Code)
	require.Len(t, resp.Entries, 3)
	assert.Equal("aaa2", resp.Entries[0].Hash)
	assert.Equal("bbb1", resp.Entries[1].Hash)
	assert.Equal("aaa1", resp.Entries[2].Hash)
	assert.Equal("https://b.example/notes", resp.Entries[1].Repository)
	assert.Equal("Alice", resp.Entries[0].AuthorName)

	resp = timelineResponse{}
	_, err = getJSON(t, srv.handleTimeline, "/timeline?type=post&limit=1", &resp)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal("aaa2", resp.Entries[0].Hash)

	resp = timelineResponse{}
	_, err = getJSON(t, srv.handleTimeline, "/timeline?repository="+url.QueryEscape("https://b.example/notes"), &resp)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal("bbb1", resp.Entries[0].Hash)

	_, err = getJSON(t, srv.handleTimeline, "/timeline?limit=nope", nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(400, httpErr.Code)
}

func TestHandleLogs(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mock := &social.MockVCS{Present: true}
	srv := testServer(t, mock)
	svc := srv.logs.(*social.Service)

	_, err := svc.Post(ctx, srv.repoDir, "hello world")
	require.NoError(t, err)

	var resp logsResponse
	rec, err := getJSON(t, srv.handleLogs, "/logs?scope=repository:my", &resp)
	require.NoError(t, err)
	assert.Equal(200, rec.Code)
	assert.Equal("repository:my", resp.Scope)
	require.Len(t, resp.Entries, 1)
	assert.Equal("post", resp.Entries[0].Type)
	assert.Equal("hello world", resp.Entries[0].Details)

	// scope defaults to the follow timeline
	resp = logsResponse{}
	_, err = getJSON(t, srv.handleLogs, "/logs", &resp)
	require.NoError(t, err)
	assert.Equal(social.ScopeTimeline, resp.Scope)

	_, err = getJSON(t, srv.handleLogs, "/logs?scope=bogus", nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(400, httpErr.Code)

	_, err = getJSON(t, srv.handleLogs, "/logs?since=not-a-time", nil)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(400, httpErr.Code)
}

func TestHandleLogsNotCached(t *testing.T) {
	assert := assert.New(t)

	srv := testServer(t, &social.MockVCS{Present: false})

	_, err := getJSON(t, srv.handleLogs, "/logs?scope="+url.QueryEscape("https://example.com/alice/journal"), nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(404, httpErr.Code)
}

func TestHandleThread(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mock := &social.MockVCS{Present: true}
	srv := testServer(t, mock)
	svc := srv.logs.(*social.Service)

	rootID, err := svc.Post(ctx, srv.repoDir, "thread root")
	require.NoError(t, err)
	c1, err := svc.Comment(ctx, srv.repoDir, rootID, "", "first reply")
	require.NoError(t, err)
	_, err = svc.Comment(ctx, srv.repoDir, rootID, c1, "nested reply")
	require.NoError(t, err)
	c2, err := svc.Comment(ctx, srv.repoDir, rootID, "", "second reply")
	require.NoError(t, err)

	params := make(url.Values)
	params.Set("post", string(rootID))
	params.Set("sort", "oldest")

	var resp threadResponse
	rec, err := getJSON(t, srv.handleThread, "/thread?"+params.Encode(), &resp)
	require.NoError(t, err)
	assert.Equal(200, rec.Code)

	assert.Equal(rootID, resp.Root.ID)
	assert.Equal(2, resp.Root.Counts.Comments)
	require.Len(t, resp.Replies, 3)

	// pre-order: first reply, its nested child, then the later sibling
	assert.Equal("first reply", resp.Replies[0].Body)
	assert.Equal(1, resp.Replies[0].Depth)
	assert.Equal("nested reply", resp.Replies[1].Body)
	assert.Equal(2, resp.Replies[1].Depth)
	assert.Equal(c2, resp.Replies[2].ID)
	assert.Equal(1, resp.Replies[2].Depth)

	params.Set("post", "#commit:ffffffffffff")
	_, err = getJSON(t, srv.handleThread, "/thread?"+params.Encode(), nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(404, httpErr.Code)

	_, err = getJSON(t, srv.handleThread, "/thread", nil)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(400, httpErr.Code)

	params.Set("post", "not a post id")
	_, err = getJSON(t, srv.handleThread, "/thread?"+params.Encode(), nil)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(400, httpErr.Code)
}

func TestHandleRepoStates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	srv := testServer(t, &social.MockVCS{Present: true})

	require.NoError(t, srv.store.MarkRefreshed(ctx, "https://b.example/notes", 4, nil))
	require.NoError(t, srv.store.MarkRefreshed(ctx, "https://a.example/journal", 0, errors.New("mirror sync failed")))

	var resp repoStatesResponse
	rec, err := getJSON(t, srv.handleRepoStates, "/repos", &resp)
	require.NoError(t, err)
	assert.Equal(200, rec.Code)
	require.Len(t, resp.Repositories, 2)
	assert.Equal("https://a.example/journal", resp.Repositories[0].Repository)
	assert.Equal("mirror sync failed", resp.Repositories[0].LastError)
	assert.Equal("https://b.example/notes", resp.Repositories[1].Repository)
	assert.Equal(4, resp.Repositories[1].Entries)
}
