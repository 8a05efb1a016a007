package sentiment

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/jonreiter/govader"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

// Scorer assigns VADER polarity scores to items. The lexicon is loaded once
// and only read afterwards, so a Scorer can be reused across batches.
type Scorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
	logger   *slog.Logger
}

func NewScorer(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scorer{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
		logger:   logger,
	}
}

// Score returns a copy of items with Sentiment and SentimentScores populated,
// in the original order. The input slice is left untouched.
func (s *Scorer) Score(items []models.Item) []models.Item {
	scored := make([]models.Item, len(items))
	fallbacks := 0
	for i, item := range items {
		scores, err := s.scoreItem(item)
		if err != nil {
			fallbacks++
			s.logger.Warn("[SentimentScorer] Falling back to neutral score",
				slog.Int("index", i),
				slog.String("error", err.Error()))
		}
		item.SentimentScores = scores
		item.Sentiment = scores.Compound
		scored[i] = item
	}

	s.logger.Debug("[SentimentScorer] Scored batch",
		slog.Int("items", len(items)),
		slog.Int("fallbacks", fallbacks))
	return scored
}

// ScoreText scores a single text. Empty text is neutral.
func (s *Scorer) ScoreText(text string) models.SentimentScores {
	scores, err := s.scoreText(text)
	if err != nil {
		return models.NeutralScores
	}
	return scores
}

func (s *Scorer) scoreItem(item models.Item) (models.SentimentScores, error) {
	scores, err := s.scoreText(item.EffectiveText())
	if err != nil {
		return models.NeutralScores, err
	}
	return scores, nil
}

func (s *Scorer) scoreText(text string) (scores models.SentimentScores, err error) {
	if text == "" {
		return models.NeutralScores, nil
	}

	defer func() {
		if r := recover(); r != nil {
			scores = models.NeutralScores
			err = fmt.Errorf("[SentimentScorer] analyzer panic: %v", r)
		}
	}()

	raw := s.analyzer.PolarityScores(text)
	scores = models.SentimentScores{
		Negative: raw.Negative,
		Neutral:  raw.Neutral,
		Positive: raw.Positive,
		Compound: raw.Compound,
	}

	if !finite(scores.Compound) || !finite(scores.Negative) || !finite(scores.Neutral) || !finite(scores.Positive) {
		return models.NeutralScores, fmt.Errorf("[SentimentScorer] non-finite score for text of length %d", len(text))
	}
	scores.Compound = math.Max(-1, math.Min(1, scores.Compound))

	return scores, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Label buckets a compound score using the ±0.1 deadband used for narrative summaries.
func Label(compound float64) string {
	switch {
	case compound > 0.1:
		return "positive"
	case compound < -0.1:
		return "negative"
	default:
		return "neutral"
	}
}
