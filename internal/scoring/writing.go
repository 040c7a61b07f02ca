package scoring

import "strings"

// NormalizeOutput canonicalizes program output before comparison: line
// endings become LF, whitespace runs inside a line collapse to single spaces,
// line edges are trimmed and leading/trailing blank lines are dropped.
// Character case is preserved.
func NormalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// MatchOutput reports whether the submitted output equals the expected output
// after normalization. Binary: there is no partial credit.
func MatchOutput(expected, submitted string) bool {
	return NormalizeOutput(submitted) == NormalizeOutput(expected)
}
