package chunker

import (
	"strings"

	"pmc-rag/internal/domain"
)

// SplitLongSentence splits a single over-budget sentence into
// token-safe pieces on word boundaries. Consecutive pieces share
// wordOverlap words so context survives the cut for hybrid search and
// reranking. A single word that alone exceeds maxTokens is still
// emitted as its own piece.
func SplitLongSentence(counter domain.TokenCounter, sentence string, maxTokens, wordOverlap int) []string {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return nil
	}
	var pieces []string
	start := 0
	for start < len(words) {
		end := start
		var window []string
		for end < len(words) {
			candidate := strings.Join(words[start:end+1], " ")
			if counter.Count(candidate) > maxTokens && len(window) > 0 {
				break
			}
			window = words[start : end+1]
			end++
		}
		if len(window) > 0 {
			pieces = append(pieces, strings.Join(window, " "))
		}
		// Step back for overlap unless that would stall on a window no
		// longer than the overlap itself.
		if end-wordOverlap > start {
			start = end - wordOverlap
		} else {
			start += len(window)
		}
	}
	return pieces
}
