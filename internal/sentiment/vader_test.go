package sentiment

import (
	"testing"

	"github.com/spacesedan/narratives/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorePreservesLengthAndOrder(t *testing.T) {
	scorer := NewScorer(nil)
	items := []models.Item{
		{Source: models.SourceNews, Text: "This is a wonderful, amazing day!"},
		{Source: models.SourceRSS, Text: "This is a horrible, terrible disaster."},
		{Source: models.SourceSocial, Title: "Great news for everyone"},
		{Source: models.SourceOther},
	}

	scored := scorer.Score(items)
	require.Len(t, scored, len(items))

	for i, item := range scored {
		assert.Equal(t, items[i].Source, item.Source)
		assert.GreaterOrEqual(t, item.Sentiment, -1.0)
		assert.LessOrEqual(t, item.Sentiment, 1.0)
		assert.Equal(t, item.Sentiment, item.SentimentScores.Compound)
	}

	assert.Greater(t, scored[0].Sentiment, 0.1)
	assert.Less(t, scored[1].Sentiment, -0.1)
	assert.Greater(t, scored[2].Sentiment, 0.0, "title is used when text is empty")
}

func TestScoreEmptyTextIsNeutral(t *testing.T) {
	scorer := NewScorer(nil)
	scored := scorer.Score([]models.Item{{Source: models.SourceNews}})

	require.Len(t, scored, 1)
	assert.Equal(t, 0.0, scored[0].Sentiment)
	assert.Equal(t, models.SentimentScores{Neutral: 1}, scored[0].SentimentScores)
}

func TestScoreDoesNotMutateInput(t *testing.T) {
	scorer := NewScorer(nil)
	items := []models.Item{{Text: "I love this!"}}

	_ = scorer.Score(items)
	assert.Equal(t, 0.0, items[0].Sentiment)
	assert.Equal(t, models.SentimentScores{}, items[0].SentimentScores)
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := NewScorer(nil)
	text := "The market is NOT doing great, but analysts are hopeful!!!"

	first := scorer.ScoreText(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, scorer.ScoreText(text))
	}

	sum := first.Negative + first.Neutral + first.Positive
	assert.InDelta(t, 1.0, sum, 0.01)
}

func TestScoreEmptyBatch(t *testing.T) {
	scorer := NewScorer(nil)
	assert.Empty(t, scorer.Score(nil))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "positive", Label(0.11))
	assert.Equal(t, "neutral", Label(0.1))
	assert.Equal(t, "neutral", Label(-0.1))
	assert.Equal(t, "negative", Label(-0.11))
}
