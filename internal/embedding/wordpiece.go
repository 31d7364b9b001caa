package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxCharsPerWord = 100

// WordPieceTokenizer implements BERT WordPiece tokenization from a vocab.txt
// file (one token per line, line number is the token ID).
type WordPieceTokenizer struct {
	vocab     map[string]int64
	clsID     int64
	sepID     int64
	padID     int64
	unkID     int64
	lowercase bool
}

// LoadWordPieceTokenizer reads a vocab.txt file.
func LoadWordPieceTokenizer(vocabPath string, lowercase bool) (*WordPieceTokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocab: %w", err)
	}
	defer f.Close()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocab: %w", err)
	}
	return NewWordPieceTokenizer(tokens, lowercase)
}

// NewWordPieceTokenizer builds a tokenizer from an ordered token list.
// The list must contain [CLS], [SEP] and [UNK]; [PAD] defaults to ID 0.
func NewWordPieceTokenizer(tokens []string, lowercase bool) (*WordPieceTokenizer, error) {
	vocab := make(map[string]int64, len(tokens))
	for i, tok := range tokens {
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = int64(i)
		}
	}
	t := &WordPieceTokenizer{vocab: vocab, lowercase: lowercase}
	for name, dst := range map[string]*int64{"[CLS]": &t.clsID, "[SEP]": &t.sepID, "[UNK]": &t.unkID} {
		id, ok := vocab[name]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", name)
		}
		*dst = id
	}
	if id, ok := vocab["[PAD]"]; ok {
		t.padID = id
	}
	return t, nil
}

// VocabSize returns the number of distinct tokens.
func (t *WordPieceTokenizer) VocabSize() int {
	return len(t.vocab)
}

// Tokenize produces [CLS] pieces... [SEP] padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	var ids []int64
	for _, word := range t.basicTokenize(text) {
		ids = append(ids, t.wordPiece(word)...)
		if len(ids) >= maxTokens {
			break
		}
	}
	return frame(ids, maxTokens, t.clsID, t.sepID, t.padID)
}

// basicTokenize cleans text, optionally lowercases and strips accents, and
// splits on whitespace, punctuation and CJK characters.
func (t *WordPieceTokenizer) basicTokenize(text string) []string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if t.lowercase {
		cleaned = stripAccents(strings.ToLower(cleaned))
	}

	var words []string
	for _, field := range strings.Fields(cleaned) {
		words = append(words, splitPunct(field)...)
	}
	return words
}

// wordPiece applies greedy longest-match-first segmentation to one word.
func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxCharsPerWord {
		return []int64{t.unkID}
	}
	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				found = id
				break
			}
		}
		if found < 0 {
			return []int64{t.unkID}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

func splitPunct(word string) []string {
	var out []string
	var cur []rune
	for _, r := range word {
		if isPunct(r) {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			out = append(out, string(r))
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isPunct treats all non-alphanumeric ASCII as punctuation, like BERT.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x20000 && r <= 0x2FA1F)
}
