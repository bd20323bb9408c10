package actions

import "strings"

const markerPrefix = "[gitsocial:"

// Decode parses commit message text into a Message. It is total over
// arbitrary input: text that does not match the action grammar, including
// any malformed fragment anywhere in an otherwise well-formed message,
// yields nil. It never panics and never returns an error, so history replay
// cannot abort on one bad commit.
func Decode(text string) *Message {
	lines := strings.Split(text, "\n")
	ns, fields, ok := parseMarker(lines[0])
	if !ok || ns == refNamespace {
		return nil
	}
	msg := &Message{Namespace: ns, Fields: fields}

	// Split the remainder into segments at reference markers. Marker lines
	// start at column zero; content lines that look like markers were
	// space-stuffed on encode and are unstuffed here.
	segments := [][]string{nil}
	var refFields []map[string]string
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, markerPrefix) {
			rns, rf, ok := parseMarker(line)
			if !ok || rns != refNamespace {
				return nil
			}
			refFields = append(refFields, rf)
			segments = append(segments, nil)
			continue
		}
		segments[len(segments)-1] = append(segments[len(segments)-1], unstuff(line))
	}

	msg.Body = joinBody(segments[0], len(refFields) > 0)
	for i, rf := range refFields {
		meta := joinMetadata(segments[i+1], i < len(refFields)-1)
		msg.Refs = append(msg.Refs, Reference{Fields: rf, Metadata: meta})
	}
	return msg
}

// joinBody reassembles the body segment, removing the structural blank line
// the encoder inserts after the header and, when a marker follows, the one
// it inserts before the marker. Interior blanks are content.
func joinBody(seg []string, markerFollows bool) string {
	if len(seg) > 0 && seg[0] == "" {
		seg = seg[1:]
	}
	if markerFollows && len(seg) > 0 && seg[len(seg)-1] == "" {
		seg = seg[:len(seg)-1]
	}
	return strings.Join(seg, "\n")
}

// joinMetadata reassembles a reference metadata segment. Metadata starts
// directly after its marker line; only the structural blank before a
// following marker is removed.
func joinMetadata(seg []string, markerFollows bool) string {
	if markerFollows && len(seg) > 0 && seg[len(seg)-1] == "" {
		seg = seg[:len(seg)-1]
	}
	return strings.Join(seg, "\n")
}

// parseMarker parses a "[gitsocial:ns] k=v k=v" line into its namespace and
// field map. The returned map is always non-nil on success.
func parseMarker(line string) (string, map[string]string, bool) {
	rest, ok := strings.CutPrefix(line, markerPrefix)
	if !ok {
		return "", nil, false
	}
	ns, rest, ok := strings.Cut(rest, "]")
	if !ok || !validNamespace(ns) {
		return "", nil, false
	}
	if rest != "" {
		if rest[0] != ' ' {
			return "", nil, false
		}
		rest = rest[1:]
	}
	fields, ok := parseFields(rest)
	if !ok {
		return "", nil, false
	}
	return ns, fields, true
}

// parseFields tokenizes a space-separated sequence of key=value pairs.
// Values carrying whitespace, quotes, "=" or "]" arrive double-quoted with
// backslash escapes; anything else is a bare token.
func parseFields(s string) (map[string]string, bool) {
	fields := make(map[string]string)
	i := 0
	for i < len(s) {
		if s[i] == ' ' {
			i++
			continue
		}
		start := i
		for i < len(s) && isKeyByte(s[i]) {
			i++
		}
		if i == start || i >= len(s) || s[i] != '=' {
			return nil, false
		}
		key := s[start:i]
		i++
		var val string
		if i < len(s) && s[i] == '"' {
			v, n, ok := parseQuoted(s[i:])
			if !ok {
				return nil, false
			}
			if i+n < len(s) && s[i+n] != ' ' {
				return nil, false
			}
			val = v
			i += n
		} else {
			vstart := i
			for i < len(s) && s[i] != ' ' {
				i++
			}
			val = s[vstart:i]
			if strings.Contains(val, `"`) {
				return nil, false
			}
		}
		fields[key] = val
	}
	return fields, true
}

// parseQuoted reads a double-quoted value starting at s[0] == '"' and returns
// the decoded value plus the number of input bytes consumed. Recognized
// escapes are \\ \" and \n; anything else after a backslash is malformed.
func parseQuoted(s string) (string, int, bool) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		switch s[i] {
		case '"':
			return b.String(), i + 1, true
		case '\\':
			i++
			if i >= len(s) {
				return "", 0, false
			}
			switch s[i] {
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case 'n':
				b.WriteByte('\n')
			default:
				return "", 0, false
			}
			i++
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return "", 0, false
}

func validNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for i := 0; i < len(ns); i++ {
		c := ns[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '_' || c == '-') {
			return false
		}
	}
	return true
}

func isKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == ':' || c == '.' || c == '_' || c == '-'
}

// unstuff reverses the encoder's space-stuffing of content lines that would
// otherwise read as markers.
func unstuff(line string) string {
	if strings.HasPrefix(line, " ") && strings.HasPrefix(strings.TrimLeft(line, " "), markerPrefix) {
		return line[1:]
	}
	return line
}
