package chunker

import (
	"strings"

	"go.uber.org/zap"

	"pmc-rag/internal/domain"
)

// HardTokenCeiling is the embedding model's absolute sequence limit.
const HardTokenCeiling = 512

// Defaults leave headroom below the 512-token window for special
// tokens added by the embedding model.
const (
	DefaultMaxTokens     = 480
	DefaultOverlapTokens = 80
	DefaultWordOverlap   = 10
)

// assembler packs sentences into token-budgeted chunks with
// trailing-sentence overlap between consecutive chunks.
type assembler struct {
	counter       domain.TokenCounter
	maxTokens     int
	overlapTokens int
	wordOverlap   int
	log           *zap.Logger
}

// assemblyState is threaded explicitly through the sentence pass.
type assemblyState struct {
	chunks []string
	// current holds the sentences accumulated for the in-progress
	// chunk; currentTokens is the sum of their individual counts.
	current       []string
	currentTokens int
	// overlap holds the trailing sentences of the last flushed chunk,
	// ready to seed the next chunk.
	overlap []string
	// fresh reports whether current holds anything beyond carried-over
	// overlap. A stale current at end of input is pure duplication of
	// the previous chunk's tail.
	fresh bool
}

// assemble greedily packs sentences into chunks of at most maxTokens.
// A sentence that alone exceeds the budget is split word-wise and its
// pieces emitted as chunks of their own.
func (a *assembler) assemble(sentences []string) []string {
	st := &assemblyState{}
	for i := 0; i < len(sentences); {
		sent := sentences[i]
		sentTokens := a.counter.Count(sent)

		if sentTokens > a.maxTokens {
			a.flush(st)
			a.appendSplitSentence(st, sent)
			i++
			continue
		}
		if st.currentTokens+sentTokens > a.maxTokens && len(st.current) > 0 {
			a.flush(st)
			st.current = append([]string(nil), st.overlap...)
			st.currentTokens = a.countAll(st.current)
			if st.currentTokens+sentTokens > a.maxTokens {
				// The carried overlap leaves no room for the sentence,
				// so seeding would flush the same overlap on every
				// pass without ever advancing. Drop the seed; the
				// sentence starts the next chunk alone.
				st.current = nil
				st.currentTokens = 0
			}
			// Re-evaluate the same sentence against the reset state.
			continue
		}
		st.current = append(st.current, sent)
		st.currentTokens += sentTokens
		st.fresh = true
		i++
	}
	// Final flush. An over-ceiling current that holds only carried-over
	// overlap duplicates the previous chunk's tail; drop it rather than
	// split it into redundant chunks.
	if len(st.current) > 0 && (st.fresh || st.currentTokens <= HardTokenCeiling) {
		a.flush(st)
	}
	return st.chunks
}

// flush closes the in-progress chunk, remembers the trailing sentences
// that seed the next chunk's overlap, and resets the accumulator. A
// joined text over the hard ceiling is word-split rather than emitted
// oversized or dropped.
func (a *assembler) flush(st *assemblyState) {
	if len(st.current) == 0 {
		return
	}
	text := strings.TrimSpace(strings.Join(st.current, " "))
	if text != "" {
		st.overlap = a.overlapTail(st.current)
		if a.counter.Count(text) > HardTokenCeiling {
			a.log.Warn("assembled chunk over hard ceiling, word-splitting",
				zap.Int("tokens", a.counter.Count(text)),
				zap.Int("ceiling", HardTokenCeiling))
			st.chunks = append(st.chunks, SplitLongSentence(a.counter, text, a.maxTokens, a.wordOverlap)...)
		} else {
			st.chunks = append(st.chunks, text)
		}
	}
	st.current = nil
	st.currentTokens = 0
	st.fresh = false
}

// appendSplitSentence emits each word-split piece of an over-budget
// sentence as a completed chunk and seeds the next chunk with the tail
// words of the last piece so continuity carries forward.
func (a *assembler) appendSplitSentence(st *assemblyState, sent string) {
	pieces := SplitLongSentence(a.counter, sent, a.maxTokens, a.wordOverlap)
	for _, p := range pieces {
		if n := a.counter.Count(p); n > HardTokenCeiling {
			// A single word the vocabulary cannot reduce below the
			// ceiling. Keep the data; the section-level safety net
			// re-checks every chunk.
			a.log.Warn("word-split piece over hard ceiling",
				zap.Int("tokens", n),
				zap.Int("ceiling", HardTokenCeiling))
		}
		st.chunks = append(st.chunks, p)
	}
	st.current = nil
	st.currentTokens = 0
	st.overlap = nil
	st.fresh = false
	if len(pieces) == 0 {
		return
	}
	tail := strings.Fields(pieces[len(pieces)-1])
	if len(tail) > a.wordOverlap {
		tail = tail[len(tail)-a.wordOverlap:]
	}
	if len(tail) > 0 {
		seed := strings.Join(tail, " ")
		st.overlap = []string{seed}
		st.current = []string{seed}
		st.currentTokens = a.counter.Count(seed)
	}
}

// overlapTail returns the trailing sentences whose cumulative token
// count reaches overlapTokens, scanning backward from the end.
func (a *assembler) overlapTail(sents []string) []string {
	var tail []string
	count := 0
	for i := len(sents) - 1; i >= 0; i-- {
		if count >= a.overlapTokens {
			break
		}
		tail = append([]string{sents[i]}, tail...)
		count += a.counter.Count(sents[i])
	}
	return tail
}

func (a *assembler) countAll(sents []string) int {
	total := 0
	for _, s := range sents {
		total += a.counter.Count(s)
	}
	return total
}
