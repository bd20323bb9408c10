package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/gitsocial/gitsocial/fakedata"
)

var cmdFake = &cli.Command{
	Name:  "fake",
	Usage: "seed the repository with generated demo content",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "posts", Value: 10},
		&cli.IntFlag{Name: "comments", Value: 5},
		&cli.IntFlag{Name: "reposts", Value: 2},
		&cli.IntFlag{Name: "quotes", Value: 2},
		&cli.IntFlag{Name: "lists", Value: 1},
		&cli.IntFlag{Name: "follows-per-list", Value: 3},
		&cli.BoolFlag{Name: "no-profile", Usage: "skip writing a generated config snapshot"},
		&cli.Int64Flag{Name: "seed", Usage: "pin the random stream, 0 picks one"},
	},
	Action: runFake,
}

func runFake(cctx *cli.Context) error {
	ctx := context.Background()

	gen := fakedata.NewGenerator(newService(), cctx.Int64("seed"))
	stats, err := gen.Seed(ctx, repoDir(cctx), &fakedata.Options{
		Posts:          cctx.Int("posts"),
		Comments:       cctx.Int("comments"),
		Reposts:        cctx.Int("reposts"),
		Quotes:         cctx.Int("quotes"),
		Lists:          cctx.Int("lists"),
		FollowsPerList: cctx.Int("follows-per-list"),
		Profile:        !cctx.Bool("no-profile"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d posts, %d comments, %d reposts, %d quotes, %d lists, %d follows\n",
		stats.Posts, stats.Comments, stats.Reposts, stats.Quotes, stats.Lists, stats.Follows)
	return nil
}
