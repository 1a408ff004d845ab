package chunker

import (
	"regexp"
	"strings"
)

// Periods inside decimals and common scientific abbreviations are
// swapped for a private-use placeholder before splitting so they are
// not mistaken for sentence enders.
const protectPlaceholder = "\uE000"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	decimalRe    = regexp.MustCompile(`(\d)\.(\d)`)
	// The abbreviation list is fixed; unlisted abbreviations may cause
	// false splits, an accepted limitation of the heuristic.
	abbreviationRe = regexp.MustCompile(`(?i)(Fig|Figs|et\s+al|Dr|Mr|Mrs|Ms|e\.g|i\.e|vs|No)\.(\s|$)`)
)

// SplitSentences splits section text into sentences with a heuristic
// tuned for scientific prose: decimals (0.05), abbreviations (Fig.,
// et al., e.g.) and statistics (p = 0.001) do not end sentences.
// Empty or whitespace-only input yields no sentences.
func SplitSentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	protected := protectPeriods(text)
	var sentences []string
	for _, part := range splitProtected(protected) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sentences = append(sentences, strings.ReplaceAll(part, protectPlaceholder, "."))
	}
	return sentences
}

func protectPeriods(text string) string {
	text = decimalRe.ReplaceAllString(text, "${1}"+protectPlaceholder+"${2}")
	text = abbreviationRe.ReplaceAllString(text, "${1}"+protectPlaceholder+"${2}")
	return text
}

// splitProtected cuts after '.', '!' or '?' when followed by a space
// and an uppercase letter, or at end of text. Whitespace has already
// been collapsed, so a single space is the only separator to consider.
func splitProtected(text string) []string {
	runes := []rune(text)
	var parts []string
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
		default:
			continue
		}
		if i+1 == len(runes) {
			parts = append(parts, string(runes[start:]))
			start = len(runes)
			continue
		}
		if runes[i+1] == ' ' && i+2 < len(runes) && runes[i+2] >= 'A' && runes[i+2] <= 'Z' {
			parts = append(parts, string(runes[start:i+1]))
			start = i + 2
			i++
		}
	}
	if start < len(runes) {
		parts = append(parts, string(runes[start:]))
	}
	return parts
}
