package vcs

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record and field separators keep multiline commit messages parseable.
const (
	logFormat = "%H%x1f%an%x1f%ae%x1f%at%x1f%B%x1e"
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// LogOptions selects which commits Log enumerates.
type LogOptions struct {
	// Branch walks a single branch. Empty means the working branch (HEAD).
	Branch string

	// AllBranches walks every content branch instead. Reserved pointers are
	// excluded from this walk; list them in Refs to include their history.
	AllBranches bool

	// Refs are reserved pointers to enumerate in addition to the branch
	// walk. Every commit reached through one carries its name on Commit.Ref,
	// so callers see the full snapshot history of each pointer.
	Refs []string

	Since *time.Time
	Until *time.Time

	// Limit caps the number of commits per walked ref, zero for no cap.
	Limit int
}

// Log enumerates commits most-recent-first. Results from the branch walk and
// the pointer walks are merged and de-duplicated by hash; when a commit is
// reachable both ways the pointer association wins.
func (g *Git) Log(ctx context.Context, opts LogOptions) ([]Commit, error) {
	// An unborn branch has no commits to walk.
	if opts.Branch == "" && !g.refExists(ctx, "HEAD") {
		return nil, nil
	}

	var out []Commit
	seen := make(map[string]int)

	walk := func(rev []string, refName string) error {
		raw, err := g.runRaw(ctx, logArgs(opts, rev)...)
		if err != nil {
			return err
		}
		commits, err := parseLog(raw)
		if err != nil {
			return err
		}
		for _, c := range commits {
			c.Ref = refName
			if i, ok := seen[c.Hash]; ok {
				if refName != "" {
					out[i].Ref = refName
				}
				continue
			}
			seen[c.Hash] = len(out)
			out = append(out, c)
		}
		return nil
	}

	var branchRev []string
	switch {
	case opts.AllBranches:
		branchRev = []string{"--exclude=refs/heads/social/*", "--branches"}
	case opts.Branch != "":
		branchRev = []string{opts.Branch}
	default:
		branchRev = []string{"HEAD"}
	}
	if err := walk(branchRev, ""); err != nil {
		return nil, err
	}

	for _, ref := range opts.Refs {
		fullRef := "refs/heads/" + ref
		if !g.refExists(ctx, fullRef) {
			g.logger.Debug("skipping missing pointer", "ref", ref)
			continue
		}
		if err := walk([]string{fullRef}, ref); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	return out, nil
}

func logArgs(opts LogOptions, rev []string) []string {
	args := []string{"log", "--format=" + logFormat}
	if opts.Limit > 0 {
		args = append(args, "-n", strconv.Itoa(opts.Limit))
	}
	if opts.Since != nil {
		args = append(args, "--since="+opts.Since.Format(time.RFC3339))
	}
	if opts.Until != nil {
		args = append(args, "--until="+opts.Until.Format(time.RFC3339))
	}
	args = append(args, rev...)
	return append(args, "--")
}

// Show returns the single commit identified by rev, which may be a hash,
// an abbreviated hash, or a ref name.
func (g *Git) Show(ctx context.Context, rev string) (Commit, error) {
	raw, err := g.runRaw(ctx, "show", "-s", "--format="+logFormat, rev, "--")
	if err != nil {
		return Commit{}, err
	}
	commits, err := parseLog(raw)
	if err != nil {
		return Commit{}, err
	}
	if len(commits) != 1 {
		return Commit{}, fmt.Errorf("revision %s resolved to %d commits", rev, len(commits))
	}
	return commits[0], nil
}

// parseLog splits formatted git log output into commits. Messages keep
// interior newlines; trailing newlines are git's own message normalization
// and are dropped.
func parseLog(out string) ([]Commit, error) {
	var commits []Commit
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		parts := strings.SplitN(record, fieldSep, 5)
		if len(parts) != 5 {
			return nil, fmt.Errorf("unexpected log record shape: %.80q", record)
		}
		ts, err := strconv.ParseInt(parts[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing commit timestamp: %w", err)
		}
		commits = append(commits, Commit{
			Hash:        parts[0],
			AuthorName:  parts[1],
			AuthorEmail: parts[2],
			Time:        time.Unix(ts, 0).UTC(),
			Message:     strings.TrimRight(parts[4], "\n"),
		})
	}
	return commits, nil
}
