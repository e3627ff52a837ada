package summary

import (
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	sentenceBreak     = regexp.MustCompile(`[.!?]+`)
)

const (
	// ShortInputLength is the length below which text is returned as is
	ShortInputLength = 100

	maxFallbackLength = 200
	noSentenceLength  = 150
	minSentenceLength = 10
)

// StripTags removes anything that looks like a markup tag
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}

// CleanText strips tags, collapses whitespace runs and trims
func CleanText(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(StripTags(text), " "))
}

// FallbackSummary builds an extractive summary from the leading sentences.
//
// Sentences are split on runs of '.', '!' and '?' and kept when longer than
// 10 characters. The first sentence is used, joined by the second when the
// first is under 100 characters. The result is at most 200 characters and
// always ends with a period.
func FallbackSummary(text string) string {
	stripped := StripTags(text)

	var sentences []string
	for _, s := range sentenceBreak.Split(stripped, -1) {
		s = strings.TrimSpace(s)
		if runeLen(s) > minSentenceLength {
			sentences = append(sentences, s)
		}
	}

	if len(sentences) == 0 {
		return truncate(strings.TrimSpace(stripped), noSentenceLength) + "..."
	}

	summary := sentences[0]
	if runeLen(summary) < ShortInputLength && len(sentences) > 1 {
		summary += ". " + sentences[1]
	}

	// Leave room for the closing period.
	if runeLen(summary) >= maxFallbackLength {
		summary = truncate(summary, maxFallbackLength-3) + "..."
	}

	if !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}

func runeLen(s string) int {
	return len([]rune(s))
}

// truncate returns the first n characters of s
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
