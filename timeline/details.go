package timeline

import (
	"fmt"
	"strings"

	"github.com/gitsocial/gitsocial/actions"
	"github.com/gitsocial/gitsocial/vcs"
)

// formatDetails renders the one-line human-readable summary for a
// classified commit. Pure: everything it needs arrives as arguments, and
// every type of the closed set is handled.
func formatDetails(t EntryType, msg *actions.Message, c vcs.Commit) string {
	switch t {
	case TypeComment:
		return "Re: " + originalExcerpt(msg)
	case TypeRepost:
		return "Repost: " + originalExcerpt(msg)
	case TypeQuote:
		return "Quote: " + originalExcerpt(msg)
	case TypeRepoFollow:
		return fmt.Sprintf("Added %s to list %q", fieldOr(msg, actions.FieldRepo, "unknown"), fieldOr(msg, actions.FieldList, "unknown"))
	case TypeRepoUnfollow:
		return fmt.Sprintf("Removed %s from list %q", fieldOr(msg, actions.FieldRepo, "unknown"), fieldOr(msg, actions.FieldList, "unknown"))
	case TypeListCreate:
		return fmt.Sprintf("Created list %q", listLabel(DecodeSnapshot(c.Message), c.Ref))
	case TypeListDelete:
		return "Deleted list"
	case TypeConfig, TypeMetadata:
		if msg != nil && msg.Body != "" {
			return msg.Body
		}
		if line := firstLine(c.Message); line != "" {
			return line
		}
		return "No message"
	default:
		// the implicit-post default
		if msg != nil {
			return firstLine(msg.Body)
		}
		return firstLine(c.Message)
	}
}

// originalExcerpt is the quoted excerpt of the first "original" reference
// that carries one, defaulting to the word "post" so summaries stay
// readable when the reference quotes nothing.
func originalExcerpt(msg *actions.Message) string {
	if msg != nil {
		for i := range msg.Refs {
			if msg.Refs[i].Kind() != actions.RefOriginal {
				continue
			}
			if ex := msg.Refs[i].Excerpt(); ex != "" {
				return ex
			}
		}
	}
	return "post"
}

func fieldOr(msg *actions.Message, key, fallback string) string {
	if msg != nil && msg.Fields[key] != "" {
		return msg.Fields[key]
	}
	return fallback
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
