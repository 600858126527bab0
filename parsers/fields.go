package parsers

import "strings"

// Line handling states for the field extractor. A line with a colon
// opens a field; a line without one is only meaningful while a field
// is open.
type extractState int

const (
	extractStart extractState = iota
	extractInField
)

// ExtractFields parses a colon-delimited plaintext notice body into a
// lowercase key map. Repeated keys (COMMENTS blocks) accumulate:
// repeats of the previous key append with a newline, and lines without
// a colon continue the open field joined by a single space. It reports
// false when no field at all could be extracted.
func ExtractFields(raw string) (map[string]string, bool) {
	fields := make(map[string]string)
	state := extractStart
	lastKey := ""

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		key, value, found := strings.Cut(line, ":")
		switch {
		case found:
			k := strings.ToLower(strings.TrimSpace(key))
			if _, seen := fields[k]; seen && k == lastKey {
				fields[k] += "\n" + strings.TrimLeft(value, " \t")
			} else {
				fields[k] = strings.TrimSpace(value)
			}
			lastKey = k
			state = extractInField
		case state == extractInField:
			// Continuation of a wrapped value.
			fields[lastKey] += " " + strings.TrimSpace(line)
		default:
			// Leading junk before the first field is dropped.
		}
	}

	return fields, len(fields) > 0
}

// hasTitleMarkers reports whether every marker occurs in the parsed
// title, ignoring case. Parsers use this to claim only their own
// notice family.
func hasTitleMarkers(fields map[string]string, markers ...string) bool {
	title := strings.ToLower(fields["title"])
	for _, m := range markers {
		if !strings.Contains(title, strings.ToLower(m)) {
			return false
		}
	}
	return true
}
