package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

var cmdList = &cli.Command{
	Name:  "list",
	Usage: "manage follow lists",
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:      "create",
			Usage:     "create a follow list",
			ArgsUsage: `<list-id> [<display-name>]`,
			Action:    runListCreate,
		},
		&cli.Command{
			Name:      "delete",
			Usage:     "delete a follow list",
			ArgsUsage: `<list-id>`,
			Action:    runListDelete,
		},
		&cli.Command{
			Name:      "follow",
			Usage:     "add a repository to a list",
			ArgsUsage: `<list-id> <repository>`,
			Action:    runListFollow,
		},
		&cli.Command{
			Name:      "unfollow",
			Usage:     "remove a repository from a list",
			ArgsUsage: `<list-id> <repository>`,
			Action:    runListUnfollow,
		},
		&cli.Command{
			Name:      "show",
			Usage:     "show one list, or all lists when no id is given",
			ArgsUsage: `[<list-id>]`,
			Action:    runListShow,
		},
	},
}

func runListCreate(cctx *cli.Context) error {
	ctx := context.Background()
	id := cctx.Args().Get(0)
	if id == "" {
		return fmt.Errorf("expected a list id argument")
	}
	name := cctx.Args().Get(1)
	if name == "" {
		name = id
	}
	return newService().CreateList(ctx, repoDir(cctx), id, name)
}

func runListDelete(cctx *cli.Context) error {
	ctx := context.Background()
	id := cctx.Args().Get(0)
	if id == "" {
		return fmt.Errorf("expected a list id argument")
	}
	return newService().DeleteList(ctx, repoDir(cctx), id)
}

func runListFollow(cctx *cli.Context) error {
	return runMembershipChange(cctx, true)
}

func runListUnfollow(cctx *cli.Context) error {
	return runMembershipChange(cctx, false)
}

func runMembershipChange(cctx *cli.Context, follow bool) error {
	ctx := context.Background()
	if cctx.Args().Len() < 2 {
		return fmt.Errorf("expected a list id and a repository locator")
	}
	id, repo := cctx.Args().Get(0), cctx.Args().Get(1)
	svc := newService()
	if follow {
		return svc.Follow(ctx, repoDir(cctx), id, repo)
	}
	return svc.Unfollow(ctx, repoDir(cctx), id, repo)
}

func runListShow(cctx *cli.Context) error {
	ctx := context.Background()
	svc := newService()

	if id := cctx.Args().Get(0); id != "" {
		snap, err := svc.ReadList(ctx, repoDir(cctx), id)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", snap.Name, snap.ID)
		for _, repo := range snap.Repositories {
			fmt.Printf("  %s\n", repo)
		}
		return nil
	}

	lists, err := svc.Lists(ctx, repoDir(cctx))
	if err != nil {
		return err
	}
	for _, snap := range lists {
		fmt.Printf("%s (%s): %d repositories\n", snap.Name, snap.ID, len(snap.Repositories))
	}
	return nil
}
