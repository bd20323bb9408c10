package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/xlab/treeprint"

	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/threads"
	"github.com/gitsocial/gitsocial/timeline"
)

var cmdThread = &cli.Command{
	Name:      "thread",
	Usage:     "show a post and its reply tree",
	ArgsUsage: `<post-id>`,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "scope",
			Usage: "history scope to resolve the thread from",
			Value: social.ScopeTimeline,
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "order of the top-level replies (top, latest, oldest)",
			Value: string(threads.SortTop),
		},
	}, logFilterFlags...),
	Action: runThread,
}

func runThread(cctx *cli.Context) error {
	ctx := context.Background()

	rootID, err := parsePostIDArg(cctx.Args().First())
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(cctx)
	if err != nil {
		return err
	}

	entries, err := newService().GetLogs(ctx, repoDir(cctx), cctx.String("scope"), filter)
	if err != nil {
		return err
	}

	posts := threads.PostsFromEntries(entries)
	root, ok := threads.Find(posts, rootID)
	if !ok {
		return fmt.Errorf("post not found in scope: %s", rootID)
	}

	tree := treeprint.NewWithRoot(rootLabel(root))
	stack := []treeprint.Tree{tree}
	for _, p := range threads.SortThreadTree(root.ID, posts, threads.SortMode(cctx.String("sort"))) {
		depth := threads.CalculateDepth(p, root, posts)
		if depth < 1 {
			depth = 1
		}
		if depth > len(stack) {
			depth = len(stack)
		}
		branch := stack[depth-1].AddBranch(postLabel(p))
		stack = append(stack[:depth], branch)
	}
	fmt.Println(tree.String())
	return nil
}

func rootLabel(p threads.Post) string {
	return fmt.Sprintf("%s · %s · %s\n%d comments, %d reposts, %d quotes",
		p.ID, p.Author.Name, p.Time.Local().Format("2006-01-02 15:04"),
		p.Counts.Comments, p.Counts.Reposts, p.Counts.Quotes)
}

func postLabel(p threads.Post) string {
	label := fmt.Sprintf("%s · %s · %s", p.ID.Ref().Value, p.Author.Name, firstLine(p.Body))
	if p.Type == timeline.TypeQuote {
		label = "(quote) " + label
	}
	return label
}
