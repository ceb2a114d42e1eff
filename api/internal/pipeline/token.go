package pipeline

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	bpeloader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer is the fixed byte-pair encoding the budgeter and chunker operate
// on. Count must equal len(Encode) for the same text, and Decode(Encode(t))
// must reproduce t up to the whitespace normalization the encoding itself
// performs.
type Tokenizer interface {
	Count(text string) int
	Encode(text string) []int
	Decode(tokens []int) string
}

// BPE wraps the cl100k_base encoding matched to the completion model's
// tokenization. The BPE table is loaded from the embedded copy, not the
// network, so counts are deterministic across environments.
type BPE struct {
	enc *tiktoken.Tiktoken
}

func NewBPE() (*BPE, error) {
	tiktoken.SetBpeLoader(bpeloader.NewOfflineLoader())
	enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		return nil, fmt.Errorf("load bpe encoding: %w", err)
	}
	return &BPE{enc: enc}, nil
}

func (b *BPE) Count(text string) int      { return len(b.enc.Encode(text, nil, nil)) }
func (b *BPE) Encode(text string) []int   { return b.enc.Encode(text, nil, nil) }
func (b *BPE) Decode(tokens []int) string { return b.enc.Decode(tokens) }
