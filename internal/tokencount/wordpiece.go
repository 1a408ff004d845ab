package tokencount

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
)

// WordPieceCounter counts subword tokens with the same WordPiece
// vocabulary as the downstream embedding model (PubMedBERT). Counts
// exclude special tokens, matching how chunk budgets are measured.
type WordPieceCounter struct {
	tk *tokenizer.Tokenizer
}

// NewWordPieceCounter loads the vocabulary artifact at vocabPath. The
// artifact is required: a counter that cannot tokenize must fail here
// rather than report zero lengths downstream.
func NewWordPieceCounter(vocabPath string) (*WordPieceCounter, error) {
	if _, err := os.Stat(vocabPath); err != nil {
		return nil, fmt.Errorf("tokenizer vocab %s: %w", vocabPath, err)
	}
	model, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("load wordpiece vocab %s: %w", vocabPath, err)
	}
	tk := tokenizer.NewTokenizer(model)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())
	return &WordPieceCounter{tk: tk}, nil
}

// Count returns the token length of text without special tokens.
func (c *WordPieceCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	seq := tokenizer.NewInputSequence(text)
	en, err := c.tk.Encode(tokenizer.NewSingleEncodeInput(seq), false)
	if err != nil {
		// Encoding plain UTF-8 text does not fail in practice; if it
		// ever does, a whitespace word count keeps budgets sane instead
		// of silently reporting zero.
		return len(strings.Fields(text))
	}
	return len(en.GetIds())
}

var shared struct {
	once    sync.Once
	counter *WordPieceCounter
	err     error
}

// Shared returns a process-wide WordPiece counter for the given vocab,
// loading the artifact at most once. The loaded tokenizer is read-only
// and safe to share across concurrent callers.
func Shared(vocabPath string) (*WordPieceCounter, error) {
	shared.once.Do(func() {
		shared.counter, shared.err = NewWordPieceCounter(vocabPath)
	})
	return shared.counter, shared.err
}
