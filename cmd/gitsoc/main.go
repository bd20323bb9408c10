package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "gitsoc",
		Usage:   "social networking over plain git repositories",
		Version: versioninfo.Short(),
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"C"},
			Usage:   "path of the repository to operate on",
			Value:   ".",
			EnvVars: []string{"GITSOCIAL_REPO"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity (debug, info, warn, error)",
			Value:   "warn",
			EnvVars: []string{"GITSOCIAL_LOG_LEVEL"},
		},
	}
	app.Before = func(cctx *cli.Context) error {
		configLogger(cctx, os.Stderr)
		return nil
	}
	app.Commands = []*cli.Command{
		cmdLog,
		cmdPost,
		cmdComment,
		cmdRepost,
		cmdQuote,
		cmdList,
		cmdThread,
		cmdConfig,
		cmdFake,
	}
	return app.Run(args)
}
