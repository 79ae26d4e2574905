package attribution_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-ml/lucid/internal/attribution"
)

// wordEncoding is a toy tokenizer that splits on spaces, so tests do not
// need to download a real tiktoken vocabulary.
type wordEncoding struct {
	vocab []string
	ids   map[string]int
}

func newWordEncoding(words ...string) *wordEncoding {
	enc := &wordEncoding{vocab: words, ids: make(map[string]int, len(words))}
	for i, w := range words {
		enc.ids[w] = i
	}
	return enc
}

func (e *wordEncoding) Encode(text string, _, _ []string) []int {
	var out []int
	for _, w := range strings.Fields(text) {
		if id, ok := e.ids[w]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (e *wordEncoding) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = e.vocab[id]
	}
	return strings.Join(words, " ")
}

func TestTokenOcclusion_ScoreDrops(t *testing.T) {
	enc := newWordEncoding("great", "terrible", "movie", "the")

	// Score for class 0 ("positive"): +1 per "great", -1 per "terrible".
	scorer := attribution.TextScorerFunc(func(text string, class int) (float32, error) {
		var score float32
		for _, w := range strings.Fields(text) {
			switch w {
			case "great":
				score++
			case "terrible":
				score--
			}
		}
		return score, nil
	})

	method := attribution.NewTokenOcclusion(enc, scorer)
	attrs, err := method.Explain("the great terrible movie", 0)
	require.NoError(t, err)
	require.Len(t, attrs, 4)

	assert.Equal(t, "the", attrs[0].Token)
	assert.InDelta(t, 0, attrs[0].Score, 1e-6)
	assert.Equal(t, "great", attrs[1].Token)
	assert.InDelta(t, 1, attrs[1].Score, 1e-6)
	assert.Equal(t, "terrible", attrs[2].Token)
	assert.InDelta(t, -1, attrs[2].Score, 1e-6)
	assert.Equal(t, "movie", attrs[3].Token)
	assert.InDelta(t, 0, attrs[3].Score, 1e-6)
}

func TestTokenOcclusion_EmptyText(t *testing.T) {
	enc := newWordEncoding("word")
	scorer := attribution.TextScorerFunc(func(text string, class int) (float32, error) {
		return 0, nil
	})

	method := attribution.NewTokenOcclusion(enc, scorer)
	attrs, err := method.Explain("", 0)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestTokenOcclusion_ScorerError(t *testing.T) {
	enc := newWordEncoding("a", "b")
	scorerErr := errors.New("service unavailable")
	scorer := attribution.TextScorerFunc(func(text string, class int) (float32, error) {
		return 0, scorerErr
	})

	method := attribution.NewTokenOcclusion(enc, scorer)
	_, err := method.Explain("a b", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scorerErr))
}
