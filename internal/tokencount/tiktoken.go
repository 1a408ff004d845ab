package tokencount

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TiktokenCounter approximates token counts with a BPE encoding for
// setups without the WordPiece vocab artifact. Counts differ slightly
// from the embedding model's, which is acceptable because chunk budgets
// keep headroom below the hard ceiling.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, defaulting to
// cl100k_base.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the BPE token length of text.
func (c *TiktokenCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
