package social

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gitsocial/gitsocial/vcs"
)

// mockEpoch anchors synthetic commit timestamps; every write advances one
// second so ordering stays deterministic.
var mockEpoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// MockVCS is an in-memory VCS for tests: reads come from fixture state,
// writes accumulate like a tiny repository so published actions can be
// replayed back through GetLogs.
type MockVCS struct {
	mu  sync.Mutex
	seq int

	// Present reports IsRepo.
	Present bool

	// Branch is the current working branch, "main" when empty.
	Branch string

	// Commits holds the full history, fixture plus writes. Log returns it
	// most-recent-first, keeping pointer commits only when their ref is
	// walked.
	Commits []vcs.Commit

	// Refs are the reserved pointer names ListSocialRefs returns.
	Refs []string

	// Err, when set, is returned by every fallible call.
	Err error

	// Committed records CommitEmpty messages in order; RefWrites records
	// snapshot messages per pointer; Deleted records removed pointers.
	Committed []string
	RefWrites map[string][]string
	Deleted   []string

	// LastLog records the options of the most recent Log call.
	LastLog vcs.LogOptions
}

var _ VCS = (*MockVCS)(nil)

func (m *MockVCS) IsRepo(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Present
}

func (m *MockVCS) CurrentBranch(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.Branch == "" {
		return "main", nil
	}
	return m.Branch, nil
}

func (m *MockVCS) ListSocialRefs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return slices.Clone(m.Refs), nil
}

func (m *MockVCS) Log(ctx context.Context, opts vcs.LogOptions) ([]vcs.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLog = opts
	if m.Err != nil {
		return nil, m.Err
	}
	var out []vcs.Commit
	for _, c := range m.Commits {
		if c.Ref != "" && !slices.Contains(opts.Refs, c.Ref) {
			continue
		}
		if opts.Since != nil && c.Time.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && c.Time.After(*opts.Until) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	// Limit caps commits per walked ref, like git log -n does per walk.
	if opts.Limit > 0 {
		counts := make(map[string]int)
		kept := out[:0]
		for _, c := range out {
			if counts[c.Ref] < opts.Limit {
				counts[c.Ref]++
				kept = append(kept, c)
			}
		}
		out = kept
	}
	return out, nil
}

func (m *MockVCS) Show(ctx context.Context, rev string) (vcs.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return vcs.Commit{}, m.Err
	}
	if name, ok := strings.CutPrefix(rev, "refs/heads/"); ok {
		// a deleted pointer's commits survive in Commits but the name no
		// longer resolves, same as git
		if !slices.Contains(m.Refs, name) {
			return vcs.Commit{}, fmt.Errorf("revision %s not found", rev)
		}
		var latest *vcs.Commit
		for i := range m.Commits {
			c := &m.Commits[i]
			if c.Ref != name {
				continue
			}
			if latest == nil || c.Time.After(latest.Time) {
				latest = c
			}
		}
		if latest == nil {
			return vcs.Commit{}, fmt.Errorf("revision %s not found", rev)
		}
		return *latest, nil
	}
	if rev == "" {
		return vcs.Commit{}, fmt.Errorf("empty revision")
	}
	for _, c := range m.Commits {
		if strings.HasPrefix(c.Hash, rev) {
			return c, nil
		}
	}
	return vcs.Commit{}, fmt.Errorf("revision %s not found", rev)
}

func (m *MockVCS) CommitEmpty(ctx context.Context, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	c := m.nextCommit(message, "")
	m.Commits = append(m.Commits, c)
	m.Committed = append(m.Committed, message)
	return c.Hash, nil
}

func (m *MockVCS) WriteRefCommit(ctx context.Context, ref, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	c := m.nextCommit(message, ref)
	m.Commits = append(m.Commits, c)
	if !slices.Contains(m.Refs, ref) {
		m.Refs = append(m.Refs, ref)
	}
	if m.RefWrites == nil {
		m.RefWrites = make(map[string][]string)
	}
	m.RefWrites[ref] = append(m.RefWrites[ref], message)
	return c.Hash, nil
}

func (m *MockVCS) DeleteRef(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	i := slices.Index(m.Refs, ref)
	if i < 0 {
		return fmt.Errorf("deleting pointer %s: not found", ref)
	}
	m.Refs = slices.Delete(m.Refs, i, i+1)
	m.Deleted = append(m.Deleted, ref)
	return nil
}

func (m *MockVCS) nextCommit(message, ref string) vcs.Commit {
	m.seq++
	sum := sha1.Sum([]byte(fmt.Sprintf("%d\n%s", m.seq, message)))
	return vcs.Commit{
		Hash:        hex.EncodeToString(sum[:]),
		AuthorName:  "Mock Author",
		AuthorEmail: "mock@example.com",
		Time:        mockEpoch.Add(time.Duration(m.seq) * time.Second),
		Message:     message,
		Ref:         ref,
	}
}
