package narrative

import "math"

// Strength combines mention volume, source diversity and sentiment magnitude
// into a score in [0,1]. Volume and diversity are capped at the configured
// expected maxima, so the score never decreases as either count grows.
func (cfg Config) Strength(mentions, sources int, avgSentiment float64) float64 {
	volume := math.Min(float64(mentions)/float64(cfg.ExpectedMaxMentions), 1)
	diversity := math.Min(float64(sources)/float64(cfg.ExpectedMaxSources), 1)
	magnitude := math.Min(math.Abs(avgSentiment), 1)

	total := cfg.VolumeWeight + cfg.DiversityWeight + cfg.SentimentWeight
	if total <= 0 {
		return 0
	}

	score := (cfg.VolumeWeight*volume + cfg.DiversityWeight*diversity + cfg.SentimentWeight*magnitude) / total
	return round3(score)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
