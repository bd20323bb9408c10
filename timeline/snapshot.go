package timeline

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gitsocial/gitsocial/actions"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/vcs"
)

// ListSnapshot is the whole-document state stored in a list pointer commit:
// the list's identity plus its full membership at that moment. Unlike action
// messages this is plain JSON; the snapshot is the payload, not a header
// over free text.
type ListSnapshot struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Repositories []string `json:"repositories"`
}

// DecodeSnapshot parses snapshot JSON. Total: malformed text yields the
// empty state, never an error.
func DecodeSnapshot(text string) ListSnapshot {
	var snap ListSnapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		return ListSnapshot{}
	}
	return snap
}

// EncodeSnapshot renders the single-line JSON document stored in a list
// pointer commit.
func EncodeSnapshot(snap ListSnapshot) string {
	if snap.Repositories == nil {
		snap.Repositories = []string{}
	}
	b, err := json.Marshal(snap)
	if err != nil {
		// a ListSnapshot of strings cannot fail to marshal
		return "{}"
	}
	return string(b)
}

// listLabel names a list for display: the snapshot name, then its id, then
// the id carried by the pointer name itself.
func listLabel(snap ListSnapshot, ref string) string {
	if snap.Name != "" {
		return snap.Name
	}
	if snap.ID != "" {
		return snap.ID
	}
	if id := syntax.ListIDFromPointer(ref); id != "" {
		return id
	}
	return "unknown"
}

// diffListSnapshot synthesizes the entries for one snapshot commit on a
// list pointer: one repository-follow per identifier the snapshot added and
// one repository-unfollow per identifier it removed, relative to the
// pointer's previous snapshot. A pointer's first snapshot diffs against the
// empty state, so its whole membership reads as newly followed. A snapshot
// that changes no membership surfaces as a single list-create entry, so
// creations, renames, and no-op updates are still visible in the log.
//
// Failure anywhere inside the diff degrades to that same fallback entry;
// it never aborts the outer reconstruction.
func diffListSnapshot(c vcs.Commit, history []vcs.Commit, baseRepo string, logger *slog.Logger) (entries []Entry) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("list snapshot diff failed", "hash", c.Hash, "ref", c.Ref, "panic", r)
			entries = []Entry{listFallbackEntry(c, baseRepo)}
		}
	}()

	listsDiffed.Inc()
	cur := DecodeSnapshot(c.Message)
	label := listLabel(cur, c.Ref)

	prev, hasPrev := previousSnapshot(c, history)
	added := diffSet(cur.Repositories, prev.Repositories)
	removed := diffSet(prev.Repositories, cur.Repositories)

	if len(added) == 0 && len(removed) == 0 {
		e := newEntry(c, TypeListCreate, baseRepo, nil)
		if hasPrev {
			e.Details = fmt.Sprintf("Updated list %q", label)
		}
		return []Entry{e}
	}

	for _, repo := range added {
		entries = append(entries, newEntry(c, TypeRepoFollow, baseRepo, listChangeMessage(repo, label)))
	}
	for _, repo := range removed {
		entries = append(entries, newEntry(c, TypeRepoUnfollow, baseRepo, listChangeMessage(repo, label)))
	}
	return entries
}

// listChangeMessage builds the synthetic message a synthesized follow or
// unfollow entry is formatted from; the change never existed as a commit of
// its own.
func listChangeMessage(repo, list string) *actions.Message {
	m := actions.NewMessage(actions.NamespaceSocial)
	m.Fields[actions.FieldRepo] = repo
	m.Fields[actions.FieldList] = list
	return m
}

// listFallbackEntry is the substitute when a snapshot cannot be diffed. It
// deliberately touches nothing beyond the raw commit.
func listFallbackEntry(c vcs.Commit, baseRepo string) Entry {
	label := syntax.ListIDFromPointer(c.Ref)
	if label == "" {
		label = "unknown"
	}
	e := newEntry(c, TypeListCreate, baseRepo, nil)
	e.Details = fmt.Sprintf("Updated list %q", label)
	return e
}

// previousSnapshot locates the state preceding commit c on its pointer: the
// nearest entry after c in the pointer's most-recent-first history with a
// distinct hash.
func previousSnapshot(c vcs.Commit, history []vcs.Commit) (ListSnapshot, bool) {
	idx := -1
	for i := range history {
		if history[i].Hash == c.Hash {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ListSnapshot{}, false
	}
	for _, prev := range history[idx+1:] {
		if prev.Hash != c.Hash {
			return DecodeSnapshot(prev.Message), true
		}
	}
	return ListSnapshot{}, false
}

// diffSet returns the members of a missing from b, preserving a's order and
// dropping duplicates.
func diffSet(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, s := range b {
		in[s] = true
	}
	var out []string
	for _, s := range a {
		if !in[s] {
			in[s] = true
			out = append(out, s)
		}
	}
	return out
}
