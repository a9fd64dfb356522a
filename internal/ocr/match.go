package ocr

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultSimilarity is the minimum similarity ratio for a fuzzy match.
const DefaultSimilarity = 0.80

// MatchKind tells how a target was found.
type MatchKind string

const (
	MatchNone MatchKind = ""
	MatchWord MatchKind = "word"
	MatchLine MatchKind = "line"
)

// Similarity returns the difflib ratio of a and b, case-insensitively,
// compared rune by rune. Two empty strings are identical.
func Similarity(a, b string) float64 {
	ra := runeStrings(strings.ToLower(a))
	rb := runeStrings(strings.ToLower(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return difflib.NewMatcher(ra, rb).Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// alnum lowercases s and drops everything but letters and digits.
func alnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Fuzzy reports whether candidate matches target: a case-insensitive
// substring, a substring once punctuation and spacing are stripped, or a
// similarity ratio of at least threshold.
func Fuzzy(candidate, target string, threshold float64) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	t := strings.ToLower(strings.TrimSpace(target))
	if c == "" || t == "" {
		return false
	}
	if strings.Contains(c, t) {
		return true
	}
	if ac, at := alnum(c), alnum(t); ac != "" && at != "" && strings.Contains(ac, at) {
		return true
	}
	return Similarity(c, t) >= threshold
}

// Match applies the matching policy to recognized words: first a single
// word, then the whole line. For a line match the box is the first word
// matching the target's first token, else the first word.
func Match(words []WordBox, target string, threshold float64) (WordBox, MatchKind) {
	if len(words) == 0 || strings.TrimSpace(target) == "" {
		return WordBox{}, MatchNone
	}
	for _, w := range words {
		if Fuzzy(w.Text, target, threshold) {
			return w, MatchWord
		}
	}

	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	if !Fuzzy(strings.Join(texts, " "), target, threshold) {
		return WordBox{}, MatchNone
	}
	first := strings.Fields(target)[0]
	for _, w := range words {
		if Fuzzy(w.Text, first, threshold) {
			return w, MatchLine
		}
	}
	return words[0], MatchLine
}
