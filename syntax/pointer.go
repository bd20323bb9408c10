package syntax

import "strings"

// Reserved pointer (branch) names used by gitsocial to store mutable state inside a
// repository. Ordinary branches carry posts; these carry snapshots and metadata.
const (
	// PointerNamespace is the prefix every gitsocial-owned pointer lives under.
	PointerNamespace = "social/"
	// PointerLists is the sub-namespace for follow-list snapshot pointers, one per list.
	PointerLists = "social/lists/"
	// PointerConfig is the single reserved pointer holding repository configuration.
	PointerConfig = "social/config"
)

// Reports whether a pointer name lies under the gitsocial reserved namespace.
func IsReservedPointer(name string) bool {
	return strings.HasPrefix(name, PointerNamespace)
}

// Reports whether a pointer name is a follow-list snapshot pointer.
func IsListPointer(name string) bool {
	return strings.HasPrefix(name, PointerLists) && len(name) > len(PointerLists)
}

// Returns the list identifier carried by a list pointer name, or empty string when
// the name is not a list pointer. "social/lists/reading" yields "reading".
func ListIDFromPointer(name string) string {
	if !IsListPointer(name) {
		return ""
	}
	return strings.TrimPrefix(name, PointerLists)
}

// Builds the pointer name for a list identifier.
func ListPointer(listID string) string {
	return PointerLists + listID
}
