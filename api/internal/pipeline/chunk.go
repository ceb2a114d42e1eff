package pipeline

// SplitTokens cuts text into pieces of at most maxTokens tokens each, on
// token boundaries. Re-joining the chunks' token sequences reproduces the
// token sequence of text exactly; the decoded chunk text may differ from the
// source only by whitespace normalization the encoding introduces.
func SplitTokens(tok Tokenizer, text string, maxTokens int) []string {
	tokens := tok.Encode(text)
	if len(tokens) == 0 {
		return nil
	}
	chunks := make([]string, 0, (len(tokens)+maxTokens-1)/maxTokens)
	for i := 0; i < len(tokens); i += maxTokens {
		end := i + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tok.Decode(tokens[i:end]))
	}
	return chunks
}
