package models

// Source identifies the kind of outlet an Item was collected from.
type Source = string

const (
	SourceNews   Source = "news"
	SourceRSS    Source = "rss"
	SourceSocial Source = "social"
	SourceOther  Source = "other"
)

// SentimentScores is the VADER breakdown for a single text. Negative, Neutral and
// Positive sum to 1; Compound is in [-1, 1].
type SentimentScores struct {
	Negative float64 `json:"neg" dynamodbav:"neg"`
	Neutral  float64 `json:"neu" dynamodbav:"neu"`
	Positive float64 `json:"pos" dynamodbav:"pos"`
	Compound float64 `json:"compound" dynamodbav:"compound"`
}

// NeutralScores is assigned to items with no usable text.
var NeutralScores = SentimentScores{Neutral: 1}

// Item is one collected unit of text content. CreatedAt is kept as the raw
// string the source gave us, it is parsed lazily and may not parse at all.
type Item struct {
	Source          Source          `json:"source"`
	SourceName      string          `json:"source_name,omitempty"`
	Title           string          `json:"title"`
	Text            string          `json:"text"`
	URL             string          `json:"url,omitempty"`
	CreatedAt       string          `json:"created_at,omitempty"`
	Sentiment       float64         `json:"sentiment"`
	SentimentScores SentimentScores `json:"sentiment_scores"`
}

// EffectiveText is the text used for scoring and clustering: Text, falling back to Title.
func (i Item) EffectiveText() string {
	if i.Text != "" {
		return i.Text
	}
	return i.Title
}
