package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/urfave/cli/v2"

	"github.com/gitsocial/gitsocial/repocache"
	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/timeline"
)

// logFilterFlags are shared by every command that reads history.
var logFilterFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:  "type",
		Usage: "keep only entries of the given type (repeatable)",
	},
	&cli.StringFlag{
		Name:  "since",
		Usage: "keep only entries at or after this time",
	},
	&cli.StringFlag{
		Name:  "until",
		Usage: "keep only entries at or before this time",
	},
	&cli.IntFlag{
		Name:  "limit",
		Usage: "cap the number of entries per walked ref",
	},
	&cli.StringFlag{
		Name:    "cache-base",
		Usage:   "directory holding cached repository mirrors",
		Value:   repocache.DefaultBase(),
		EnvVars: []string{"GITSOCIAL_CACHE_BASE"},
	},
}

var cmdLog = &cli.Command{
	Name:      "log",
	Usage:     "show the reconstructed social history of a scope",
	ArgsUsage: `[<scope>]`,
	Description: `Scope is "repository:my" (the working branch, default),
"repository:timeline" (all content branches plus follow history), or a
repository locator like "https://example.com/alice/journal#branch:main"
resolved through the local mirror cache.`,
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "emit entries as JSON",
		},
	}, logFilterFlags...),
	Action: runLog,
}

func runLog(cctx *cli.Context) error {
	ctx := context.Background()

	scope := cctx.Args().First()
	if scope == "" {
		scope = social.ScopeMy
	}
	filter, err := filterFromFlags(cctx)
	if err != nil {
		return err
	}

	entries, err := newService().GetLogs(ctx, repoDir(cctx), scope, filter)
	if err != nil {
		return err
	}

	if cctx.Bool("json") {
		b, err := json.MarshalIndent(entryViews(entries), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %-20s %s", e.Hash, e.Time.Local().Format("2006-01-02 15:04"), e.Type, e.Details)
		if e.Repository != "" {
			line += "  · " + e.Repository
		}
		fmt.Println(line)
	}
	return nil
}

func filterFromFlags(cctx *cli.Context) (*social.Filter, error) {
	f := &social.Filter{
		Limit:     cctx.Int("limit"),
		CacheBase: cctx.String("cache-base"),
	}
	for _, t := range cctx.StringSlice("type") {
		f.Types = append(f.Types, timeline.EntryType(t))
	}
	if raw := cctx.String("since"); raw != "" {
		ts, err := dateparse.ParseAny(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing --since: %w", err)
		}
		f.Since = &ts
	}
	if raw := cctx.String("until"); raw != "" {
		ts, err := dateparse.ParseAny(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing --until: %w", err)
		}
		f.Until = &ts
	}
	return f, nil
}

type entryView struct {
	Hash       string          `json:"hash"`
	Time       time.Time       `json:"time"`
	Author     timeline.Author `json:"author"`
	Type       string          `json:"type"`
	Details    string          `json:"details"`
	Repository string          `json:"repository,omitempty"`
	PostID     string          `json:"postId,omitempty"`
}

func entryViews(entries []timeline.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			Hash:       e.Hash,
			Time:       e.Time,
			Author:     e.Author,
			Type:       string(e.Type),
			Details:    e.Details,
			Repository: e.Repository,
			PostID:     string(e.PostID),
		})
	}
	return out
}
