package heuristics

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences lower-cases message and splits it on '.', '!' and '?'.
// Returned sentences are trimmed; empty ones are kept out.
func SplitSentences(message string) []string {
	parts := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(message)), func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// TaskTitle derives a task title from a sentence: every occurrence of the
// action verb is removed, then a leading filler phrase, and the result is
// whitespace-collapsed and capitalized.
func (a *Analyzer) TaskTitle(sentence, verb string) string {
	title := strings.TrimSpace(strings.ReplaceAll(sentence, verb, ""))
	title = a.StripFillerPrefix(title)
	title = strings.Join(strings.Fields(title), " ")
	return Capitalize(title)
}

// Capitalize upper-cases the first rune and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// RuneLen returns the number of characters in s
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
