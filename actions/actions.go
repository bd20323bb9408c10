// Package actions implements the wire format for social actions embedded in
// commit messages.
//
// An action message is line-oriented and stays readable in plain log output:
//
//	[gitsocial:social] social:type=comment
//
//	Totally agree with this.
//
//	[gitsocial:ref] kind=original social:id=repo#commit:a1b2c3d4e5f6
//	> the original post body
//
// The first line is the header: a namespace tag plus key=value fields. Free
// body text follows, then zero or more reference blocks, each opened by a
// [gitsocial:ref] marker carrying its own fields. Lines in a reference block
// prefixed with ">" quote an excerpt of the referenced action's body.
//
// Text that does not match the grammar decodes to nil, never to an error:
// callers treat such commits as implicit plain posts.
package actions

import "strings"

const (
	// NamespaceSocial is the extension namespace this module treats specially
	// when classifying history.
	NamespaceSocial = "social"

	// refNamespace tags reference markers. Reserved, never a message namespace.
	refNamespace = "ref"
)

// Field keys used by the social namespace. Keys are namespaced so that other
// extensions sharing a message cannot collide.
const (
	FieldType = "social:type"
	FieldList = "social:list"
	FieldRepo = "social:repo"
	FieldID   = "social:id"
)

// social:type values.
const (
	TypeComment = "comment"
	TypeRepost  = "repost"
	TypeQuote   = "quote"
)

// Reference kinds.
const (
	RefFieldKind = "kind"
	RefOriginal  = "original"
	RefParent    = "parent"
)

// Message is the decoded structured payload of an action commit message.
// Constructed fresh on every decode and never mutated afterwards.
type Message struct {
	Namespace string
	Fields    map[string]string
	Body      string
	Refs      []Reference
}

// Reference points from one action to another (a comment's reference to the
// post it replies to), carrying its own fields plus a free-text metadata
// block that may quote an excerpt of the target's body.
type Reference struct {
	Fields   map[string]string
	Metadata string
}

// NewMessage returns an empty message in the given namespace.
func NewMessage(namespace string) *Message {
	return &Message{Namespace: namespace, Fields: make(map[string]string)}
}

// NewReference returns a reference of the given kind.
func NewReference(kind string) Reference {
	return Reference{Fields: map[string]string{RefFieldKind: kind}}
}

// Type returns the social action type field ("comment", "repost", "quote"),
// or empty string when absent.
func (m *Message) Type() string {
	return m.Fields[FieldType]
}

// FindRef returns the first reference with the given kind, or nil.
func (m *Message) FindRef(kind string) *Reference {
	for i := range m.Refs {
		if m.Refs[i].Kind() == kind {
			return &m.Refs[i]
		}
	}
	return nil
}

// Kind returns the reference kind field, e.g. "original" or "parent".
func (r *Reference) Kind() string {
	return r.Fields[RefFieldKind]
}

// Excerpt returns the quoted excerpt carried in the reference's metadata
// block: the first line prefixed with ">", marker stripped and whitespace
// trimmed. Empty string when the block carries no quoted lines.
func (r *Reference) Excerpt() string {
	for _, line := range strings.Split(r.Metadata, "\n") {
		s := strings.TrimSpace(line)
		if strings.HasPrefix(s, ">") {
			return strings.TrimSpace(strings.TrimPrefix(s, ">"))
		}
	}
	return ""
}

// QuoteExcerpt builds the quoted-excerpt metadata line for a reference block
// from the referenced action's body: "> " plus the body's first non-empty
// line. Empty string for an empty body.
func QuoteExcerpt(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return "> " + s
		}
	}
	return ""
}
