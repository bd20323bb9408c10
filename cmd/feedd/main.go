package main

import (
	"fmt"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"

	"github.com/carlmjohnson/versioninfo"
	"github.com/urfave/cli/v2"

	"github.com/gitsocial/gitsocial/repocache"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "feedd",
		Usage:   "daemon serving merged social timelines from followed repositories",
		Version: versioninfo.Short(),
		Action:  serve,
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"C"},
			Usage:   "operator repository whose follow lists select what to index",
			Value:   ".",
			EnvVars: []string{"GITSOCIAL_REPO"},
		},
		&cli.StringFlag{
			Name:    "cache-base",
			Usage:   "directory holding cached repository mirrors",
			Value:   repocache.DefaultBase(),
			EnvVars: []string{"GITSOCIAL_CACHE_BASE"},
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "sqlite file path for the feed index",
			Value:   "feedd.sqlite",
			EnvVars: []string{"FEEDD_DB_PATH"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "ip or address, and port, to listen on for HTTP APIs",
			Value:   ":2480",
			EnvVars: []string{"FEEDD_BIND"},
		},
		&cli.DurationFlag{
			Name:    "refresh-interval",
			Usage:   "how often to rebuild the index from followed repositories",
			Value:   5 * time.Minute,
			EnvVars: []string{"FEEDD_REFRESH_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "parallel-refreshes",
			Usage:   "repositories to refresh concurrently",
			Value:   4,
			EnvVars: []string{"FEEDD_PARALLEL_REFRESHES"},
		},
		&cli.IntFlag{
			Name:    "refreshes-per-second",
			Usage:   "rate limit across refresh workers",
			Value:   8,
			EnvVars: []string{"FEEDD_REFRESHES_PER_SECOND"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"FEEDD_LOG_LEVEL"},
		},
	}
	return app.Run(args)
}
