package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/gitsocial/gitsocial/social"
)

var cmdConfig = &cli.Command{
	Name:  "config",
	Usage: "manage the repository's social configuration",
	Subcommands: []*cli.Command{
		&cli.Command{
			Name:   "show",
			Usage:  "print the current configuration",
			Action: runConfigShow,
		},
		&cli.Command{
			Name:  "set",
			Usage: "update configuration fields",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "name",
					Usage: "display name",
				},
				&cli.StringFlag{
					Name:  "description",
					Usage: "short profile description",
				},
			},
			Action: runConfigSet,
		},
	},
}

func runConfigShow(cctx *cli.Context) error {
	cfg, err := newService().ReadConfig(context.Background(), repoDir(cctx))
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func runConfigSet(cctx *cli.Context) error {
	ctx := context.Background()
	svc := newService()

	// start from the current snapshot so unset flags keep their values; a
	// repository with no config yet starts from zero
	cfg, err := svc.ReadConfig(ctx, repoDir(cctx))
	if err != nil {
		cfg = social.Config{}
	}
	if cctx.IsSet("name") {
		cfg.Name = cctx.String("name")
	}
	if cctx.IsSet("description") {
		cfg.Description = cctx.String("description")
	}
	return svc.SetConfig(ctx, repoDir(cctx), cfg)
}
