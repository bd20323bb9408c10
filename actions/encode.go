package actions

import (
	"fmt"
	"sort"
	"strings"
)

// Encode renders a message into commit text obeying Decode(Encode(m)) == m
// for every message Encode accepts. It rejects a nil message, an invalid or
// reserved namespace, and field keys outside [A-Za-z0-9:._-]; field values
// and body/metadata text are unrestricted.
func Encode(m *Message) (string, error) {
	if m == nil {
		return "", fmt.Errorf("cannot encode nil message")
	}
	if m.Namespace == refNamespace {
		return "", fmt.Errorf("namespace %q is reserved for reference markers", refNamespace)
	}
	if !validNamespace(m.Namespace) {
		return "", fmt.Errorf("invalid namespace: %q", m.Namespace)
	}
	header, err := formatMarker(m.Namespace, m.Fields)
	if err != nil {
		return "", err
	}
	out := []string{header}
	if m.Body != "" {
		out = append(out, "")
		out = appendStuffed(out, m.Body)
	}
	for _, ref := range m.Refs {
		marker, err := formatMarker(refNamespace, ref.Fields)
		if err != nil {
			return "", err
		}
		out = append(out, "", marker)
		if ref.Metadata != "" {
			out = appendStuffed(out, ref.Metadata)
		}
	}
	return strings.Join(out, "\n"), nil
}

// EscapePlain makes free text safe to commit as a plain post: when the text
// would decode as an action message, its first line is space-stuffed so
// replay keeps treating the commit as a post. Text that already reads as a
// post passes through verbatim.
func EscapePlain(text string) string {
	if Decode(text) == nil {
		return text
	}
	return " " + text
}

func formatMarker(ns string, fields map[string]string) (string, error) {
	var b strings.Builder
	b.WriteString(markerPrefix)
	b.WriteString(ns)
	b.WriteString("]")
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !validKey(k) {
			return "", fmt.Errorf("invalid field key: %q", k)
		}
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(formatValue(fields[k]))
	}
	return b.String(), nil
}

// formatValue quotes values that would not survive bare tokenization.
func formatValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\"\\=]") {
		return v
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(v[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		if !isKeyByte(k[i]) {
			return false
		}
	}
	return true
}

// appendStuffed splits a body or metadata block into lines, space-stuffing
// any line that would read as a marker so decode can tell content from
// structure.
func appendStuffed(out []string, block string) []string {
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " "), markerPrefix) {
			line = " " + line
		}
		out = append(out, line)
	}
	return out
}
