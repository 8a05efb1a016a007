package models

import "time"

// SentimentSummary aggregates the compound scores of a narrative's items.
type SentimentSummary struct {
	Average  float64 `json:"average" dynamodbav:"average"`
	Positive int     `json:"positive" dynamodbav:"positive"`
	Negative int     `json:"negative" dynamodbav:"negative"`
	Neutral  int     `json:"neutral" dynamodbav:"neutral"`
}

// TimeRange holds the earliest and latest parsed timestamps. Both are nil
// when no contributing item had a parsable created_at.
type TimeRange struct {
	Start *time.Time `json:"start" dynamodbav:"start"`
	End   *time.Time `json:"end" dynamodbav:"end"`
}

// Narrative is one admitted cluster, summarised.
type Narrative struct {
	ID            string           `json:"id" dynamodbav:"id"`
	DetectedAt    time.Time        `json:"detected_at" dynamodbav:"detected_at"`
	Strength      float64          `json:"strength" dynamodbav:"strength"`
	MentionCount  int              `json:"mention_count" dynamodbav:"mention_count"`
	SourceCount   int              `json:"source_count" dynamodbav:"source_count"`
	Sources       []string         `json:"sources" dynamodbav:"sources"`
	Sentiment     SentimentSummary `json:"sentiment" dynamodbav:"sentiment"`
	Themes        []string         `json:"themes" dynamodbav:"themes"`
	TimeRange     TimeRange        `json:"time_range" dynamodbav:"time_range"`
	SampleContent []string         `json:"sample_content" dynamodbav:"sample_content"`
	URLs          []string         `json:"urls" dynamodbav:"urls"`
}
