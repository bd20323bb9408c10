package social

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/gitsocial/gitsocial/actions"
	"github.com/gitsocial/gitsocial/syntax"
	"github.com/gitsocial/gitsocial/timeline"
)

// Post records free text as a plain post on the working branch of the
// repository at dir. The text is escaped if it would otherwise replay as an
// action message. Returns the new post's repository-relative address.
func (s *Service) Post(ctx context.Context, dir, body string) (syntax.PostID, error) {
	hash, err := s.open(dir).CommitEmpty(ctx, actions.EscapePlain(body))
	if err != nil {
		return "", err
	}
	return syntax.NewPostID(syntax.RefKindCommit, syntax.ShortHash(hash), ""), nil
}

// Comment records a reply to target. A non-empty parent additionally marks
// the specific comment being answered, nesting the reply beneath it in
// thread views.
func (s *Service) Comment(ctx context.Context, dir string, target, parent syntax.PostID, body string) (syntax.PostID, error) {
	return s.respond(ctx, dir, actions.TypeComment, target, parent, body)
}

// Repost records a repost of target: an action commit with no body of its
// own.
func (s *Service) Repost(ctx context.Context, dir string, target syntax.PostID) (syntax.PostID, error) {
	return s.respond(ctx, dir, actions.TypeRepost, target, "", "")
}

// Quote records a quote of target with commentary.
func (s *Service) Quote(ctx context.Context, dir string, target syntax.PostID, body string) (syntax.PostID, error) {
	return s.respond(ctx, dir, actions.TypeQuote, target, "", body)
}

func (s *Service) respond(ctx context.Context, dir, typ string, target, parent syntax.PostID, body string) (syntax.PostID, error) {
	repo := s.open(dir)

	msg := actions.NewMessage(actions.NamespaceSocial)
	msg.Fields[actions.FieldType] = typ
	msg.Body = body

	ref := actions.NewReference(actions.RefOriginal)
	ref.Fields[actions.FieldID] = string(target)
	ref.Metadata = s.targetExcerpt(ctx, repo, target)
	msg.Refs = append(msg.Refs, ref)

	if parent != "" {
		pref := actions.NewReference(actions.RefParent)
		pref.Fields[actions.FieldID] = string(parent)
		msg.Refs = append(msg.Refs, pref)
	}

	text, err := actions.Encode(msg)
	if err != nil {
		return "", fmt.Errorf("encoding %s action: %w", typ, err)
	}
	hash, err := repo.CommitEmpty(ctx, text)
	if err != nil {
		return "", err
	}
	return syntax.NewPostID(syntax.RefKindCommit, syntax.ShortHash(hash), ""), nil
}

// targetExcerpt quotes the first line of the referenced post's body when
// the target commit resolves locally. A failed lookup quotes nothing, and
// readers fall back to the literal "post".
func (s *Service) targetExcerpt(ctx context.Context, repo VCS, target syntax.PostID) string {
	ref := target.Ref()
	if ref.Kind != syntax.RefKindCommit {
		return ""
	}
	c, err := repo.Show(ctx, ref.Value)
	if err != nil {
		s.logger.Debug("reference target not resolvable locally", "target", target, "err", err)
		return ""
	}
	body := c.Message
	if m := actions.Decode(c.Message); m != nil {
		body = m.Body
	}
	return actions.QuoteExcerpt(body)
}

// CreateList writes the initial empty snapshot for a new list pointer. On
// replay the snapshot surfaces as a list-create entry.
func (s *Service) CreateList(ctx context.Context, dir, id, name string) error {
	snap := timeline.ListSnapshot{ID: id, Name: name, Repositories: []string{}}
	_, err := s.open(dir).WriteRefCommit(ctx, syntax.ListPointer(id), timeline.EncodeSnapshot(snap))
	return err
}

// DeleteList removes a list pointer. Its snapshot history stays in the
// object store until pruned.
func (s *Service) DeleteList(ctx context.Context, dir, id string) error {
	return s.open(dir).DeleteRef(ctx, syntax.ListPointer(id))
}

// ReadList returns the current snapshot of a list pointer.
func (s *Service) ReadList(ctx context.Context, dir, id string) (timeline.ListSnapshot, error) {
	return readList(ctx, s.open(dir), id)
}

func readList(ctx context.Context, repo VCS, id string) (timeline.ListSnapshot, error) {
	c, err := repo.Show(ctx, "refs/heads/"+syntax.ListPointer(id))
	if err != nil {
		return timeline.ListSnapshot{}, err
	}
	snap := timeline.DecodeSnapshot(c.Message)
	if snap.ID == "" {
		snap.ID = id
	}
	return snap, nil
}

// Follow adds a repository to a list and writes the updated snapshot; the
// reconstruction engine synthesizes the matching follow entry on replay.
// Following a repository the list already holds rewrites an identical
// snapshot, which replays as a plain update.
func (s *Service) Follow(ctx context.Context, dir, listID, repository string) error {
	return s.updateList(ctx, dir, listID, func(snap *timeline.ListSnapshot) {
		if !slices.Contains(snap.Repositories, repository) {
			snap.Repositories = append(snap.Repositories, repository)
		}
	})
}

// Unfollow removes a repository from a list and writes the updated
// snapshot.
func (s *Service) Unfollow(ctx context.Context, dir, listID, repository string) error {
	return s.updateList(ctx, dir, listID, func(snap *timeline.ListSnapshot) {
		snap.Repositories = slices.DeleteFunc(snap.Repositories, func(r string) bool {
			return r == repository
		})
	})
}

// updateList read-modify-writes a list snapshot. The list must exist;
// following into a list that was never created is an error, not an implicit
// creation.
func (s *Service) updateList(ctx context.Context, dir, listID string, change func(*timeline.ListSnapshot)) error {
	repo := s.open(dir)
	snap, err := readList(ctx, repo, listID)
	if err != nil {
		return fmt.Errorf("reading list %s: %w", listID, err)
	}
	change(&snap)
	_, err = repo.WriteRefCommit(ctx, syntax.ListPointer(listID), timeline.EncodeSnapshot(snap))
	return err
}

// Config is the repository-level profile stored on the config pointer as a
// whole-document JSON snapshot.
type Config struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// SetConfig writes a config snapshot.
func (s *Service) SetConfig(ctx context.Context, dir string, cfg Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = s.open(dir).WriteRefCommit(ctx, syntax.PointerConfig, string(b))
	return err
}

// ReadConfig returns the current config snapshot.
func (s *Service) ReadConfig(ctx context.Context, dir string) (Config, error) {
	c, err := s.open(dir).Show(ctx, "refs/heads/"+syntax.PointerConfig)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal([]byte(c.Message), &cfg); err != nil {
		return Config{}, fmt.Errorf("config snapshot didn't parse: %w", err)
	}
	return cfg, nil
}

// Lists returns the current snapshot of every list pointer in the
// repository. Unreadable pointers are skipped, not fatal.
func (s *Service) Lists(ctx context.Context, dir string) ([]timeline.ListSnapshot, error) {
	repo := s.open(dir)
	refs, err := repo.ListSocialRefs(ctx)
	if err != nil {
		return nil, err
	}
	var lists []timeline.ListSnapshot
	for _, ref := range refs {
		if !syntax.IsListPointer(ref) {
			continue
		}
		c, err := repo.Show(ctx, "refs/heads/"+ref)
		if err != nil {
			s.logger.Debug("list pointer unreadable", "ref", ref, "err", err)
			continue
		}
		snap := timeline.DecodeSnapshot(c.Message)
		if snap.ID == "" {
			snap.ID = syntax.ListIDFromPointer(ref)
		}
		lists = append(lists, snap)
	}
	return lists, nil
}

// FollowedRepositories returns the union of every list's membership,
// de-duplicated, in first-seen order.
func (s *Service) FollowedRepositories(ctx context.Context, dir string) ([]string, error) {
	lists, err := s.Lists(ctx, dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var repos []string
	for _, l := range lists {
		for _, r := range l.Repositories {
			if !seen[r] {
				seen[r] = true
				repos = append(repos, r)
			}
		}
	}
	return repos, nil
}
