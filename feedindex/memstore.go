package feedindex

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/gitsocial/gitsocial/timeline"
)

// Memstore is an in-memory Store for tests and single-shot tooling.
type Memstore struct {
	lk      sync.Mutex
	entries map[string][]Entry
	states  map[string]RepoState
}

var _ Store = (*Memstore)(nil)

func NewMemstore() *Memstore {
	return &Memstore{
		entries: make(map[string][]Entry),
		states:  make(map[string]RepoState),
	}
}

func (s *Memstore) PutEntries(ctx context.Context, repository string, entries []timeline.Entry) error {
	rows := make([]Entry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fromTimeline(repository, e))
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	s.entries[repository] = rows
	return nil
}

func (s *Memstore) Timeline(ctx context.Context, q Query) ([]Entry, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	var out []Entry
	for repo, rows := range s.entries {
		if q.Repository != "" && repo != q.Repository {
			continue
		}
		for _, e := range rows {
			if len(q.Types) > 0 && !slices.Contains(q.Types, timeline.EntryType(e.Type)) {
				continue
			}
			if q.Since != nil && e.Time.Before(*q.Since) {
				continue
			}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.After(out[j].Time)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Memstore) MarkRefreshed(ctx context.Context, repository string, count int, refreshErr error) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	state := RepoState{
		Repository:  repository,
		LastRefresh: time.Now().UTC(),
		Entries:     count,
	}
	if refreshErr != nil {
		state.LastError = refreshErr.Error()
	}
	s.states[repository] = state
	return nil
}

func (s *Memstore) RepoStates(ctx context.Context) ([]RepoState, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	out := make([]RepoState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Repository < out[j].Repository })
	return out, nil
}
