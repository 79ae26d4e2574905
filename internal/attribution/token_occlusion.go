package attribution

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding is the tokenizer surface TokenOcclusion needs. It is satisfied
// by *tiktoken.Tiktoken.
type Encoding interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// TextScorer evaluates the class score of a piece of text.
type TextScorer interface {
	ScoreText(text string, class int) (float32, error)
}

// TextScorerFunc adapts a plain function to the TextScorer interface.
type TextScorerFunc func(text string, class int) (float32, error)

// ScoreText calls f.
func (f TextScorerFunc) ScoreText(text string, class int) (float32, error) {
	return f(text, class)
}

// TokenAttribution is the score drop observed when one token is removed
// from the text.
type TokenAttribution struct {
	// Token is the decoded text of the occluded token.
	Token string

	// Score is base score minus the score of the text without this
	// token. Positive values mark tokens that support the class.
	Score float32
}

// TokenOcclusion explains a text classification by deleting one token at a
// time and measuring the score drop. Like Occlusion it is a black-box
// method, but it perturbs in token space so deletions stay on natural
// text boundaries.
type TokenOcclusion struct {
	enc    Encoding
	scorer TextScorer
}

// NewTokenOcclusion returns a TokenOcclusion method using the given
// tokenizer and scorer.
func NewTokenOcclusion(enc Encoding, scorer TextScorer) *TokenOcclusion {
	return &TokenOcclusion{enc: enc, scorer: scorer}
}

// NewTiktokenOcclusion is a convenience constructor that loads a tiktoken
// encoding by name, such as "cl100k_base".
func NewTiktokenOcclusion(encodingName string, scorer TextScorer) (*TokenOcclusion, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("attribution: load tiktoken encoding %q: %w", encodingName, err)
	}
	return NewTokenOcclusion(enc, scorer), nil
}

// Explain scores the full text once, then once per token with that token
// removed. It returns one attribution per token, in token order.
func (m *TokenOcclusion) Explain(text string, class int) ([]TokenAttribution, error) {
	ids := m.enc.Encode(text, nil, nil)
	if len(ids) == 0 {
		return nil, nil
	}

	baseScore, err := m.scorer.ScoreText(text, class)
	if err != nil {
		return nil, err
	}

	attrs := make([]TokenAttribution, len(ids))
	reduced := make([]int, 0, len(ids)-1)
	for i, id := range ids {
		reduced = reduced[:0]
		reduced = append(reduced, ids[:i]...)
		reduced = append(reduced, ids[i+1:]...)

		score, err := m.scorer.ScoreText(m.enc.Decode(reduced), class)
		if err != nil {
			return nil, err
		}

		attrs[i] = TokenAttribution{
			Token: m.enc.Decode([]int{id}),
			Score: baseScore - score,
		}
	}
	return attrs, nil
}
