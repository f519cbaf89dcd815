// Package lexicon is a keyword sentiment classifier. It needs no model
// server and is used for offline runs and demos; its scores are coarse, so
// it leans on the clarification path far more than the fine-tuned model.
package lexicon

// #region imports
import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/danielpatrickdp/sentiment-gate/go-controller/internal/graph"
)

// #endregion

// #region keywords

var positiveWords = []string{
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"superb", "brilliant", "love", "loved", "loves", "enjoy", "enjoyed",
	"best", "beautiful", "perfect", "masterpiece", "delightful", "fun",
	"funny", "charming", "moving", "recommend", "recommended", "happy",
	"awesome", "gripping", "stunning", "impressive", "favorite",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "boring", "worst", "hate",
	"hated", "hates", "dull", "waste", "wasted", "poor", "stupid",
	"disappointing", "disappointed", "mess", "annoying", "mediocre",
	"predictable", "painful", "pointless", "weak", "ugly", "sad",
	"dreadful", "unwatchable", "forgettable", "bland", "lame",
}

var negators = []string{
	"not", "no", "never", "hardly", "barely", "neither", "nor", "without",
	"isn't", "wasn't", "aren't", "don't", "doesn't", "didn't", "can't",
	"couldn't", "won't", "wouldn't", "shouldn't",
}

// #endregion

// #region constants

const (
	// NegativeLabel and PositiveLabel match the raw model head labels.
	NegativeLabel = "LABEL_0"
	PositiveLabel = "LABEL_1"

	negationWindow = 3   // tokens after a negator whose polarity flips
	hitWeight      = 1.2 // logit contribution of one keyword hit
)

// ErrEmptyText is returned for input with no words.
var ErrEmptyText = errors.New("text has no words")

// #endregion

// #region classifier

// Classifier scores text by keyword hits. It is stateless.
type Classifier struct {
	positive map[string]bool
	negative map[string]bool
	negators map[string]bool
}

// New builds the classifier from the built-in word lists.
func New() *Classifier {
	return &Classifier{
		positive: toSet(positiveWords),
		negative: toSet(negativeWords),
		negators: toSet(negators),
	}
}

// Classify returns a two-label distribution in model head order
// (LABEL_0, LABEL_1). Text with no sentiment words scores 0.5/0.5.
func (c *Classifier) Classify(ctx context.Context, text string) ([]graph.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}

	polarity := c.Polarity(tokens)
	p := 1.0 / (1.0 + math.Exp(-hitWeight*float64(polarity)))

	return []graph.Score{
		{Label: NegativeLabel, Score: 1 - p},
		{Label: PositiveLabel, Score: p},
	}, nil
}

// #endregion

// #region polarity

// Polarity is positive hits minus negative hits, with hits inside a
// negation window counted against their usual side.
func (c *Classifier) Polarity(tokens []string) int {
	polarity := 0
	negatedUntil := -1

	for i, tok := range tokens {
		if c.negators[tok] || strings.HasSuffix(tok, "n't") {
			negatedUntil = i + negationWindow
			continue
		}

		sign := 0
		switch {
		case c.positive[tok]:
			sign = 1
		case c.negative[tok]:
			sign = -1
		}
		if sign == 0 {
			continue
		}
		if i <= negatedUntil {
			sign = -sign
			negatedUntil = -1
		}
		polarity += sign
	}
	return polarity
}

// #endregion

// #region helpers

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// #endregion
