package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// runeTokenizer treats every rune as one token. It gives the chunker the
// same encode/decode contract as the BPE without needing the BPE table.
type runeTokenizer struct{}

func (runeTokenizer) Count(text string) int { return len([]rune(text)) }

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	out := make([]int, len(runes))
	for i, r := range runes {
		out[i] = int(r)
	}
	return out
}

func (runeTokenizer) Decode(tokens []int) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteRune(rune(t))
	}
	return b.String()
}

func TestSplitTokensRoundTrip(t *testing.T) {
	tok := runeTokenizer{}
	texts := []string{
		"hello world",
		strings.Repeat("hemoglobin 132 g/L within range\n", 40),
		"короткий текст на русском",
		"",
	}
	for _, text := range texts {
		for _, limit := range []int{1, 3, 8, 1000} {
			chunks := SplitTokens(tok, text, limit)

			var joined []int
			for _, c := range chunks {
				got := tok.Encode(c)
				require.LessOrEqual(t, len(got), limit, "chunk over token limit")
				joined = append(joined, got...)
			}
			require.Equal(t, tok.Encode(text), joined, "token sequence must survive the split")
		}
	}
}

func TestSplitTokensEmptyText(t *testing.T) {
	require.Nil(t, SplitTokens(runeTokenizer{}, "", 10))
}

func TestSplitTokensChunkCount(t *testing.T) {
	tok := runeTokenizer{}
	text := strings.Repeat("a", 25)
	chunks := SplitTokens(tok, text, 10)
	require.Len(t, chunks, 3)
	require.Equal(t, text, strings.Join(chunks, ""))
}
