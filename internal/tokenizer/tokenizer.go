// Package tokenizer provides deterministic token counting for prompt
// budgeting. Counts come from the cl100k_base BPE when its data is
// available and fall back to a character heuristic otherwise, so the
// chunker never blocks on tokenizer setup.
package tokenizer

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a piece of text. Implementations must be
// deterministic: the same text always yields the same count.
type Counter interface {
	Count(text string) int
}

// New returns the best Counter available for the given model name.
func New(model string) Counter {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &bpeCounter{enc: enc}
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return &bpeCounter{enc: enc}
	}
	return Estimator{}
}

type bpeCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *bpeCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Estimator approximates tokens as ceil(runes/4), the usual rule of
// thumb for BPE vocabularies on code and English text.
type Estimator struct{}

func (Estimator) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
