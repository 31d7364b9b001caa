package embedding

import "strings"

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
// Every returned slice has exactly maxTokens elements.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	defaultMaxTokens = 256
	bertCLS          = 101
	bertSEP          = 102
)

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs, used
// when a model ships without a vocabulary file.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	ids := make([]int64, len(words))
	for i, word := range words {
		ids[i] = int64(HashString(word) % 30000)
	}
	return frame(ids, maxTokens, bertCLS, bertSEP, 0)
}

// frame wraps ids in [CLS] ... [SEP], truncating so the result fits, and pads to maxTokens.
func frame(ids []int64, maxTokens int, cls, sep, pad int64) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = pad
	}

	pos := 0
	put := func(id int64) {
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	put(cls)
	for _, id := range ids {
		if pos >= maxTokens-1 {
			break
		}
		put(id)
	}
	if pos < maxTokens {
		put(sep)
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and returns non-empty words (nil for blank input).
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		// -MinInt overflows back to MinInt.
		h = 0
	}
	return h
}
