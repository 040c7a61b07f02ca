package scoring

import (
	"strings"
	"unicode"
)

// Normalize lowercases the text, turns punctuation into spaces and collapses
// whitespace runs, so keyword matching is case- and punctuation-insensitive.
func Normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		default:
			space = true
		}
	}
	return string(out)
}

// MatchKeywords returns the rubric keywords found in the transcript, in rubric
// order, deduplicated case-insensitively and kept in their original form.
// Multi-word keywords match as substrings of the normalized transcript;
// single-word keywords must match a whole word.
func MatchKeywords(transcript string, keywords []string) []string {
	t := Normalize(transcript)
	padded := " " + t + " "

	var matched []string
	for _, kw := range keywords {
		k := Normalize(kw)
		if k == "" {
			continue
		}
		if strings.Contains(k, " ") {
			if strings.Contains(t, k) {
				matched = append(matched, kw)
			}
		} else if strings.Contains(padded, " "+k+" ") {
			matched = append(matched, kw)
		}
	}

	uniq := make([]string, 0, len(matched))
	seen := make(map[string]bool, len(matched))
	for _, m := range matched {
		key := strings.ToLower(strings.TrimSpace(m))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, strings.TrimSpace(m))
	}
	return uniq
}

// ScoreSpeaking awards pointPerKeyword per matched keyword, capped at
// maxPoints. A zero cap means no cap: the raw product is awarded as is.
func ScoreSpeaking(matchedCount int, pointPerKeyword, maxPoints uint) uint {
	raw := uint(matchedCount) * pointPerKeyword
	if maxPoints > 0 && raw > maxPoints {
		return maxPoints
	}
	return raw
}
