package syntax

import (
	"fmt"
	"strings"
)

// RepoID is a repository locator plus an optional branch component, parsed from a
// decorated identifier like "https://example.com/alice/journal#branch:main".
type RepoID struct {
	Repository string
	Branch     string
}

// Extracts the base repository locator and optional branch from a decorated
// identifier. Returns an error for input with no usable locator; callers must treat
// that as a hard failure rather than substituting a default.
func ParseRepoID(raw string) (*RepoID, error) {
	if raw == "" {
		return nil, fmt.Errorf("expected repository identifier, got empty string")
	}
	base, frag, decorated := strings.Cut(raw, "#")
	if base == "" {
		return nil, fmt.Errorf("repository identifier has no locator part: %s", raw)
	}
	if strings.ContainsAny(base, " \t\n") {
		return nil, fmt.Errorf("repository locator contains whitespace: %s", base)
	}
	out := &RepoID{Repository: base}
	if !decorated {
		return out, nil
	}
	kind, value, ok := strings.Cut(frag, ":")
	if !ok || value == "" {
		return nil, fmt.Errorf("repository identifier fragment didn't parse: %s", raw)
	}
	// branch fragments decorate the locator; commit and list fragments are allowed
	// but contribute no branch component
	if RefKind(kind) == RefKindBranch {
		out.Branch = value
	}
	return out, nil
}

func (r RepoID) String() string {
	if r.Branch == "" {
		return r.Repository
	}
	return r.Repository + "#branch:" + r.Branch
}
