package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer converts text to subword tokens and back. Chunk boundaries and
// overlap regions are computed in token space, so Decode(Encode(s)) must
// round-trip losslessly.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// tiktokenTokenizer wraps a tiktoken BPE encoding.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewCL100KTokenizer returns a Tokenizer backed by the cl100k_base encoding,
// matching the tokenization used by the embedding models this service targets.
func NewCL100KTokenizer() (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load cl100k_base encoding: %w", err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
