package syntax

import (
	"fmt"
	"regexp"
	"strings"
)

// RefKind is the closed set of fragment kinds a post address can carry.
type RefKind string

const (
	RefKindCommit  = RefKind("commit")
	RefKindBranch  = RefKind("branch")
	RefKindList    = RefKind("list")
	RefKindUnknown = RefKind("unknown")
)

// Ref is the parsed fragment of a post address: a kind tag plus its value.
type Ref struct {
	Kind  RefKind
	Value string
}

var postIDRegex = regexp.MustCompile(`^([^#\s]*)#([a-zA-Z][a-zA-Z0-9-]*):(\S+)$`)

// String type which represents a syntactically valid post address, of the form
// <repository>#<kind>:<value>. The repository part may be empty, in which case the
// address is relative to whatever repository it was found in.
//
// Always use [ParsePostID] instead of wrapping strings directly, especially when
// working with input.
type PostID string

func ParsePostID(raw string) (PostID, error) {
	if raw == "" {
		return "", fmt.Errorf("expected post address, got empty string")
	}
	if len(raw) > 4096 {
		return "", fmt.Errorf("post address is too long (4096 chars max)")
	}
	if !postIDRegex.MatchString(raw) {
		return "", fmt.Errorf("post address syntax didn't validate via regex")
	}
	return PostID(raw), nil
}

// Builds a post address from a fragment kind and value. When baseRepo is empty the
// result is repository-relative (keeps the fragment separator, drops the locator).
func NewPostID(kind RefKind, value, baseRepo string) PostID {
	return PostID(baseRepo + "#" + string(kind) + ":" + value)
}

// Returns the parsed fragment of this address. Total: an unrecognized or missing
// fragment yields RefKindUnknown, never an error.
func (p PostID) Ref() Ref {
	_, frag, ok := strings.Cut(string(p), "#")
	if !ok {
		return Ref{Kind: RefKindUnknown, Value: string(p)}
	}
	kind, value, ok := strings.Cut(frag, ":")
	if !ok {
		return Ref{Kind: RefKindUnknown, Value: frag}
	}
	switch RefKind(kind) {
	case RefKindCommit, RefKindBranch, RefKindList:
		return Ref{Kind: RefKind(kind), Value: value}
	}
	return Ref{Kind: RefKindUnknown, Value: value}
}

// Returns the repository locator part of this address, which may be empty for
// relative addresses.
func (p PostID) BaseRepository() string {
	return BaseRepository(string(p))
}

func (p PostID) String() string {
	return string(p)
}

func (p PostID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PostID) UnmarshalText(text []byte) error {
	id, err := ParsePostID(string(text))
	if err != nil {
		return err
	}
	*p = id
	return nil
}

// Strips everything from the first fragment separator onward. Returns the input
// unchanged when no separator is present, and empty string for empty input.
func BaseRepository(id string) string {
	if id == "" {
		return ""
	}
	base, _, _ := strings.Cut(id, "#")
	return base
}

// Reports whether two post addresses identify the same post. Addresses are the same
// post when they are equal strings, or when both carry commit fragments with equal
// hashes regardless of which repository locator prefixes each. The second rule is
// what lets a post mirrored across repositories be recognized as one entity.
func SamePost(a, b PostID) bool {
	if a == b {
		return a != ""
	}
	ra := a.Ref()
	rb := b.Ref()
	return ra.Kind == RefKindCommit && rb.Kind == RefKindCommit && ra.Value == rb.Value
}

// Canonical short form of a commit hash used in post addresses and log entries:
// the first 12 hex characters. Shorter input is returned unchanged.
func ShortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
