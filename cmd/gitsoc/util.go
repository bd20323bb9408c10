package main

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/syntax"
)

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func newService() *social.Service {
	return social.NewService(nil)
}

func repoDir(cctx *cli.Context) string {
	return cctx.String("repo")
}

var bareHashRegex = regexp.MustCompile(`^[0-9a-f]{4,40}$`)

// parsePostIDArg accepts a full post address or, as a convenience, a bare
// commit hash which becomes a repository-relative address.
func parsePostIDArg(raw string) (syntax.PostID, error) {
	if raw == "" {
		return "", fmt.Errorf("expected a post address argument")
	}
	if bareHashRegex.MatchString(raw) {
		return syntax.NewPostID(syntax.RefKindCommit, raw, ""), nil
	}
	id, err := syntax.ParsePostID(raw)
	if err != nil {
		return "", fmt.Errorf("not a post address or commit hash: %s", raw)
	}
	return id, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
