package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spacesedan/narratives/internal/clustering"
	"github.com/spacesedan/narratives/internal/narrative"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	SourceNewsAPI = "news_api"
	SourceRSS     = "rss_feeds"
	SourceReddit  = "reddit"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Monitoring Monitoring
	News       News
	Reddit     Reddit
	Detection  Detection
	Alerts     Alerts
	Database   Database
	Health     Health
}

type Monitoring struct {
	Sources      []string      `env:"MONITORING_SOURCES" envDefault:"news_api,rss_feeds,reddit" envSeparator:","`
	Interval     time.Duration `env:"MONITORING_INTERVAL" envDefault:"15m"`
	CycleTimeout time.Duration `env:"MONITORING_CYCLE_TIMEOUT" envDefault:"10m"`
	RSSFeedsFile string        `env:"RSS_FEEDS_FILE" envDefault:"config/feeds.yaml"`
	OutputDir    string        `env:"OUTPUT_DIR" envDefault:"output/narratives"`
}

type News struct {
	APIKey      string   `env:"NEWS_API_KEY"`
	Sources     []string `env:"NEWS_SOURCES" envSeparator:","`
	Country     string   `env:"NEWS_COUNTRY" envDefault:"us"`
	MaxArticles int      `env:"NEWS_MAX_ARTICLES" envDefault:"100"`
}

type Reddit struct {
	ClientID          string   `env:"REDDIT_CLIENT_ID"`
	ClientSecret      string   `env:"REDDIT_CLIENT_SECRET"`
	Subreddits        []string `env:"REDDIT_SUBREDDITS" envSeparator:","`
	Limit             int      `env:"REDDIT_LIMIT" envDefault:"100"`
	RequestsPerMinute int      `env:"REDDIT_REQUESTS_PER_MINUTE" envDefault:"60"`
}

// Detection holds the engine knobs. MinSamples is the DBSCAN minimum
// neighbourhood size, also called min_cluster_size.
type Detection struct {
	MaxFeatures         int     `env:"NARRATIVE_MAX_FEATURES" envDefault:"1000"`
	Eps                 float64 `env:"NARRATIVE_EPS" envDefault:"0.3"`
	MinSamples          int     `env:"NARRATIVE_MIN_SAMPLES" envDefault:"5"`
	MinMentions         int     `env:"NARRATIVE_MIN_MENTIONS" envDefault:"5"`
	MinSources          int     `env:"NARRATIVE_MIN_SOURCES" envDefault:"2"`
	ThemeTopK           int     `env:"NARRATIVE_THEME_TOP_K" envDefault:"10"`
	ThemeMinTokenLength int     `env:"NARRATIVE_THEME_MIN_TOKEN_LENGTH" envDefault:"3"`
	VolumeWeight        float64 `env:"NARRATIVE_WEIGHT_VOLUME" envDefault:"0.5"`
	DiversityWeight     float64 `env:"NARRATIVE_WEIGHT_DIVERSITY" envDefault:"0.3"`
	SentimentWeight     float64 `env:"NARRATIVE_WEIGHT_SENTIMENT" envDefault:"0.2"`
	ExpectedMaxMentions int     `env:"NARRATIVE_EXPECTED_MAX_MENTIONS" envDefault:"50"`
	ExpectedMaxSources  int     `env:"NARRATIVE_EXPECTED_MAX_SOURCES" envDefault:"3"`
}

type Alerts struct {
	Threshold      float64       `env:"ALERT_THRESHOLD" envDefault:"0.7"`
	Cooldown       time.Duration `env:"ALERT_COOLDOWN" envDefault:"6h"`
	ValkeyAddress  string        `env:"VALKEY_ADDRESS"`
	ValkeyPassword string        `env:"VALKEY_PASSWORD"`
	KafkaEnabled   bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBootstrap string        `env:"KAFKA_BOOTSTRAP_SERVERS" envDefault:"localhost:9092"`
	KafkaTopic     string        `env:"KAFKA_ALERT_TOPIC" envDefault:"narrative-alerts"`
}

type Database struct {
	Enabled       bool   `env:"DATABASE_ENABLED" envDefault:"true"`
	Driver        string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/narratives.db"`
	DynamoDBTable string `env:"DYNAMODB_TABLE" envDefault:"narratives"`
	AWSRegion     string `env:"AWS_REGION" envDefault:"us-west-2"`
	AWSEndpoint   string `env:"AWS_ENDPOINT"`
}

type Health struct {
	Enabled bool   `env:"HEALTH_ENABLED" envDefault:"true"`
	Addr    string `env:"HEALTH_ADDR" envDefault:":8080"`
}

// Load parses the process environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("[Config] parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	d := c.Detection
	switch {
	case d.Eps <= 0 || d.Eps > 2:
		return fmt.Errorf("%w: NARRATIVE_EPS must be in (0, 2], got %v", ErrInvalid, d.Eps)
	case d.VolumeWeight < 0 || d.DiversityWeight < 0 || d.SentimentWeight < 0:
		return fmt.Errorf("%w: strength weights must not be negative", ErrInvalid)
	case d.VolumeWeight+d.DiversityWeight+d.SentimentWeight == 0:
		return fmt.Errorf("%w: strength weights sum to zero", ErrInvalid)
	case d.MaxFeatures < 1 || d.MinSamples < 1 || d.MinMentions < 1 || d.MinSources < 1:
		return fmt.Errorf("%w: NARRATIVE_MAX_FEATURES, NARRATIVE_MIN_SAMPLES, NARRATIVE_MIN_MENTIONS and NARRATIVE_MIN_SOURCES must be at least 1", ErrInvalid)
	case d.ThemeTopK < 1 || d.ThemeMinTokenLength < 1 || d.ExpectedMaxMentions < 1 || d.ExpectedMaxSources < 1:
		return fmt.Errorf("%w: theme and strength normalisation settings must be at least 1", ErrInvalid)
	case c.Alerts.Threshold < 0 || c.Alerts.Threshold > 1:
		return fmt.Errorf("%w: ALERT_THRESHOLD must be in [0, 1], got %v", ErrInvalid, c.Alerts.Threshold)
	case c.Monitoring.Interval <= 0:
		return fmt.Errorf("%w: MONITORING_INTERVAL must be positive", ErrInvalid)
	}

	switch c.Database.Driver {
	case "sqlite", "dynamodb":
	default:
		return fmt.Errorf("%w: unknown DATABASE_DRIVER %q", ErrInvalid, c.Database.Driver)
	}
	return nil
}

func (c Config) SourceEnabled(name string) bool {
	for _, s := range c.Monitoring.Sources {
		if s == name {
			return true
		}
	}
	return false
}

func (d Detection) Clustering() clustering.Config {
	return clustering.Config{
		MaxFeatures: d.MaxFeatures,
		Eps:         d.Eps,
		MinSamples:  d.MinSamples,
	}
}

func (d Detection) Narrative() narrative.Config {
	return narrative.Config{
		MinMentions:         d.MinMentions,
		MinSources:          d.MinSources,
		ThemeTopK:           d.ThemeTopK,
		ThemeMinTokenLength: d.ThemeMinTokenLength,
		VolumeWeight:        d.VolumeWeight,
		DiversityWeight:     d.DiversityWeight,
		SentimentWeight:     d.SentimentWeight,
		ExpectedMaxMentions: d.ExpectedMaxMentions,
		ExpectedMaxSources:  d.ExpectedMaxSources,
	}
}
