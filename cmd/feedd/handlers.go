package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/gitsocial/gitsocial/feedindex"
	"github.com/gitsocial/gitsocial/repocache"
	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/threads"
	"github.com/gitsocial/gitsocial/timeline"
)

// defaultPageLimit caps responses that don't ask for a limit themselves.
const defaultPageLimit = 100

type timelineResponse struct {
	Entries []indexedEntryView `json:"entries"`
}

type indexedEntryView struct {
	Repository  string    `json:"repository"`
	Hash        string    `json:"hash"`
	Type        string    `json:"type"`
	Time        time.Time `json:"time"`
	AuthorName  string    `json:"authorName"`
	AuthorEmail string    `json:"authorEmail"`
	Details     string    `json:"details"`
	PostID      string    `json:"postId,omitempty"`
	Body        string    `json:"body,omitempty"`
}

// GET /timeline serves the materialized cross-repository feed.
func (srv *Server) handleTimeline(c echo.Context) error {
	ctx := c.Request().Context()

	q := feedindex.Query{Repository: c.QueryParam("repository")}
	for _, t := range c.QueryParams()["type"] {
		q.Types = append(q.Types, timeline.EntryType(t))
	}
	since, err := parseTimeParam(c, "since")
	if err != nil {
		return err
	}
	q.Since = since
	q.Limit, err = parseIntParam(c, "limit")
	if err != nil {
		return err
	}
	if q.Limit == 0 || q.Limit > defaultPageLimit {
		q.Limit = defaultPageLimit
	}

	entries, err := srv.store.Timeline(ctx, q)
	if err != nil {
		return err
	}
	views := make([]indexedEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, indexedEntryView{
			Repository:  e.Repository,
			Hash:        e.Hash,
			Type:        e.Type,
			Time:        e.Time,
			AuthorName:  e.AuthorName,
			AuthorEmail: e.AuthorEmail,
			Details:     e.Details,
			PostID:      e.PostID,
			Body:        e.Body,
		})
	}
	return c.JSON(200, timelineResponse{Entries: views})
}

type logsResponse struct {
	Scope   string         `json:"scope"`
	Entries []logEntryView `json:"entries"`
}

type logEntryView struct {
	Hash       string          `json:"hash"`
	Time       time.Time       `json:"time"`
	Author     timeline.Author `json:"author"`
	Type       string          `json:"type"`
	Details    string          `json:"details"`
	Repository string          `json:"repository,omitempty"`
	PostID     string          `json:"postId,omitempty"`
}

// GET /logs reconstructs a scope's history live, bypassing the index.
func (srv *Server) handleLogs(c echo.Context) error {
	ctx := c.Request().Context()

	scope := c.QueryParam("scope")
	if scope == "" {
		scope = social.ScopeTimeline
	}
	filter, err := filterFromParams(c, srv.cacheBase)
	if err != nil {
		return err
	}

	entries, err := srv.logs.GetLogs(ctx, srv.repoDir, scope, filter)
	if err != nil {
		return mapLogsError(err)
	}
	views := make([]logEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, logEntryView{
			Hash:       e.Hash,
			Time:       e.Time,
			Author:     e.Author,
			Type:       string(e.Type),
			Details:    e.Details,
			Repository: e.Repository,
			PostID:     string(e.PostID),
		})
	}
	return c.JSON(200, logsResponse{Scope: scope, Entries: views})
}

type threadResponse struct {
	Root    threads.Post     `json:"root"`
	Replies []threadNodeView `json:"replies"`
}

type threadNodeView struct {
	threads.Post
	Depth int `json:"depth"`
}

// GET /thread resolves a post's reply tree from a live reconstruction.
func (srv *Server) handleThread(c echo.Context) error {
	ctx := c.Request().Context()

	rawID := c.QueryParam("post")
	if rawID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing post parameter")
	}
	rootID, err := syntax.ParsePostID(rawID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("not a post address: %s", rawID))
	}
	scope := c.QueryParam("scope")
	if scope == "" {
		scope = social.ScopeTimeline
	}
	mode := threads.SortMode(c.QueryParam("sort"))
	if mode == "" {
		mode = threads.SortTop
	}
	filter, err := filterFromParams(c, srv.cacheBase)
	if err != nil {
		return err
	}

	entries, err := srv.logs.GetLogs(ctx, srv.repoDir, scope, filter)
	if err != nil {
		return mapLogsError(err)
	}

	posts := threads.PostsFromEntries(entries)
	root, ok := threads.Find(posts, rootID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("post not found in scope: %s", rootID))
	}

	flat := threads.SortThreadTree(root.ID, posts, mode)
	replies := make([]threadNodeView, 0, len(flat))
	for _, p := range flat {
		replies = append(replies, threadNodeView{
			Post:  p,
			Depth: threads.CalculateDepth(p, root, posts),
		})
	}
	return c.JSON(200, threadResponse{Root: root, Replies: replies})
}

type repoStatesResponse struct {
	Repositories []repoStateView `json:"repositories"`
}

type repoStateView struct {
	Repository  string    `json:"repository"`
	LastRefresh time.Time `json:"lastRefresh"`
	LastError   string    `json:"lastError,omitempty"`
	Entries     int       `json:"entries"`
}

// GET /repos reports per-repository refresh bookkeeping.
func (srv *Server) handleRepoStates(c echo.Context) error {
	states, err := srv.store.RepoStates(c.Request().Context())
	if err != nil {
		return err
	}
	views := make([]repoStateView, 0, len(states))
	for _, st := range states {
		views = append(views, repoStateView{
			Repository:  st.Repository,
			LastRefresh: st.LastRefresh,
			LastError:   st.LastError,
			Entries:     st.Entries,
		})
	}
	return c.JSON(200, repoStatesResponse{Repositories: views})
}

// mapLogsError translates reconstruction failures onto HTTP statuses:
// unusable requests are the client's fault, missing mirrors are 404, and
// anything else stays an internal error.
func mapLogsError(err error) error {
	switch {
	case errors.Is(err, social.ErrInvalidScope), errors.Is(err, social.ErrCacheBaseRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repocache.ErrNotCached):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}

func filterFromParams(c echo.Context, cacheBase string) (*social.Filter, error) {
	f := &social.Filter{CacheBase: cacheBase}
	for _, t := range c.QueryParams()["type"] {
		f.Types = append(f.Types, timeline.EntryType(t))
	}
	since, err := parseTimeParam(c, "since")
	if err != nil {
		return nil, err
	}
	f.Since = since
	until, err := parseTimeParam(c, "until")
	if err != nil {
		return nil, err
	}
	f.Until = until
	f.Limit, err = parseIntParam(c, "limit")
	if err != nil {
		return nil, err
	}
	return f, nil
}

func parseTimeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	ts, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("parsing %s: %v", name, err))
	}
	return &ts, nil
}

func parseIntParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}
