// Package vcs wraps the git command line for the small set of operations the
// social layer needs: enumerating history with pointer association, reading
// and writing reserved refs, and creating the empty commits that carry
// action messages.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Commit is one raw commit as observed in repository history. Immutable once
// observed; identity is the hash.
type Commit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Time        time.Time
	Message     string

	// Ref is the reserved pointer this commit was reached through during
	// enumeration, or empty for ordinary branch commits.
	Ref string
}

type Options struct {
	// Timeout bounds each git invocation.
	Timeout time.Duration

	Logger *slog.Logger
}

func DefaultOptions() *Options {
	return &Options{
		Timeout: 30 * time.Second,
	}
}

// Git runs git commands against one repository working directory. Safe for
// concurrent use.
type Git struct {
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewGit(dir string, opts *Options) *Git {
	if opts == nil {
		opts = DefaultOptions()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("source", "vcs")
	}
	return &Git{
		dir:     dir,
		timeout: timeout,
		logger:  logger,
	}
}

// Dir returns the working directory this client operates on.
func (g *Git) Dir() string {
	return g.dir
}

// runRaw executes git with the given arguments and returns stdout verbatim.
func (g *Git) runRaw(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s: timed out after %v", args[0], g.timeout)
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// run executes git and returns stdout with surrounding whitespace trimmed.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	out, err := g.runRaw(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsRepo reports whether the working directory is inside a git repository.
func (g *Git) IsRepo(ctx context.Context) bool {
	_, err := g.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// CurrentBranch returns the working branch name, or "HEAD" when detached.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	branch, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving current branch: %w", err)
	}
	return branch, nil
}

// ResolveRef resolves a ref name to a full commit hash.
func (g *Git) ResolveRef(ctx context.Context, name string) (string, error) {
	hash, err := g.run(ctx, "rev-parse", "--verify", name)
	if err != nil {
		return "", fmt.Errorf("resolving ref %s: %w", name, err)
	}
	return hash, nil
}

// refExists reports whether a fully qualified ref resolves.
func (g *Git) refExists(ctx context.Context, fullRef string) bool {
	_, err := g.run(ctx, "rev-parse", "--verify", "--quiet", fullRef)
	return err == nil
}

// ListSocialRefs returns the short names of all reserved pointers, e.g.
// "social/lists/reading" or "social/config".
func (g *Git) ListSocialRefs(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/social/")
	if err != nil {
		return nil, fmt.Errorf("listing social refs: %w", err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// CommitEmpty records an empty commit with the given message on the working
// branch and returns its hash. Action commits carry no tree changes; the
// message is the payload.
func (g *Git) CommitEmpty(ctx context.Context, message string) (string, error) {
	if _, err := g.run(ctx, "commit", "--allow-empty", "-m", message); err != nil {
		return "", fmt.Errorf("recording action commit: %w", err)
	}
	hash, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving new commit: %w", err)
	}
	return hash, nil
}

// WriteRefCommit records a snapshot commit on a reserved pointer without
// touching the working branch or index. The commit carries the empty tree;
// its parent is the pointer's current tip, so each pointer accumulates its
// own independent snapshot chain.
func (g *Git) WriteRefCommit(ctx context.Context, ref, message string) (string, error) {
	fullRef := "refs/heads/" + ref

	tree, err := g.emptyTree(ctx)
	if err != nil {
		return "", err
	}
	args := []string{"commit-tree", tree, "-m", message}
	if g.refExists(ctx, fullRef) {
		parent, err := g.run(ctx, "rev-parse", fullRef)
		if err != nil {
			return "", fmt.Errorf("resolving pointer %s: %w", ref, err)
		}
		args = append(args, "-p", parent)
	}
	hash, err := g.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("writing snapshot commit: %w", err)
	}
	if _, err := g.run(ctx, "update-ref", fullRef, hash); err != nil {
		return "", fmt.Errorf("updating pointer %s: %w", ref, err)
	}
	g.logger.Debug("wrote snapshot commit", "ref", ref, "hash", hash)
	return hash, nil
}

// DeleteRef removes a reserved pointer. The snapshot commits it referenced
// stay in the object store until pruned.
func (g *Git) DeleteRef(ctx context.Context, ref string) error {
	if _, err := g.run(ctx, "update-ref", "-d", "refs/heads/"+ref); err != nil {
		return fmt.Errorf("deleting pointer %s: %w", ref, err)
	}
	return nil
}

// emptyTree writes (or finds) the empty tree object and returns its hash.
func (g *Git) emptyTree(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "mktree")
	cmd.Dir = g.dir
	cmd.Stdin = strings.NewReader("")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git mktree: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
