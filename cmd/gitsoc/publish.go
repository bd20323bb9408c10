package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/gitsocial/gitsocial/syntax"
)

var cmdPost = &cli.Command{
	Name:      "post",
	Usage:     "publish a post",
	ArgsUsage: `<text>`,
	Action:    runPost,
}

func runPost(cctx *cli.Context) error {
	ctx := context.Background()
	text := cctx.Args().First()
	if text == "" {
		return fmt.Errorf("need to provide post text as argument")
	}

	id, err := newService().Post(ctx, repoDir(cctx), text)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

var cmdComment = &cli.Command{
	Name:      "comment",
	Usage:     "reply to a post",
	ArgsUsage: `<post-id> <text>`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "parent",
			Usage: "comment to thread under, for nested replies",
		},
	},
	Action: runComment,
}

func runComment(cctx *cli.Context) error {
	ctx := context.Background()
	if cctx.Args().Len() < 2 {
		return fmt.Errorf("expected a post address and the comment text")
	}
	target, err := parsePostIDArg(cctx.Args().Get(0))
	if err != nil {
		return err
	}
	var parent syntax.PostID
	if raw := cctx.String("parent"); raw != "" {
		parent, err = parsePostIDArg(raw)
		if err != nil {
			return err
		}
	}

	id, err := newService().Comment(ctx, repoDir(cctx), target, parent, cctx.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

var cmdRepost = &cli.Command{
	Name:      "repost",
	Usage:     "share a post unchanged",
	ArgsUsage: `<post-id>`,
	Action:    runRepost,
}

func runRepost(cctx *cli.Context) error {
	ctx := context.Background()
	target, err := parsePostIDArg(cctx.Args().First())
	if err != nil {
		return err
	}

	id, err := newService().Repost(ctx, repoDir(cctx), target)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

var cmdQuote = &cli.Command{
	Name:      "quote",
	Usage:     "share a post with your own text",
	ArgsUsage: `<post-id> <text>`,
	Action:    runQuote,
}

func runQuote(cctx *cli.Context) error {
	ctx := context.Background()
	if cctx.Args().Len() < 2 {
		return fmt.Errorf("expected a post address and the quote text")
	}
	target, err := parsePostIDArg(cctx.Args().Get(0))
	if err != nil {
		return err
	}

	id, err := newService().Quote(ctx, repoDir(cctx), target, cctx.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}
