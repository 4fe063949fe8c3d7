package sentiment

import (
	"context"
	"strings"
)

// Scorer turns a batch of headlines for one symbol into a score in [-1, 1].
type Scorer interface {
	Name() string
	Score(ctx context.Context, texts []string) (float64, error)
}

var (
	positiveWords = []string{"beat", "surge", "strong", "record", "upgrade", "positive"}
	negativeWords = []string{"miss", "drop", "weak", "downgrade", "negative", "lawsuit"}
)

const lexiconCap = 3.0

// LexiconScorer counts lexicon words contained in each headline. Headlines
// that net to zero do not count towards the average.
type LexiconScorer struct{}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{}
}

func (l *LexiconScorer) Name() string {
	return "lexicon"
}

func (l *LexiconScorer) Score(_ context.Context, texts []string) (float64, error) {
	var sum float64
	var count int
	for _, text := range texts {
		n := headlineScore(strings.ToLower(text))
		if n == 0 {
			continue
		}
		sum += float64(n)
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return Clamp(sum/float64(count), -lexiconCap, lexiconCap) / lexiconCap, nil
}

func headlineScore(text string) int {
	score := 0
	for _, w := range positiveWords {
		if strings.Contains(text, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(text, w) {
			score--
		}
	}
	return score
}
