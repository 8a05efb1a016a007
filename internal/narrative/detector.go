package narrative

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spacesedan/narratives/internal/clustering"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/sentiment"
	"github.com/spacesedan/narratives/internal/textutil"
)

const (
	DefaultMinMentions         = 5
	DefaultMinSources          = 2
	DefaultThemeTopK           = 10
	DefaultThemeMinTokenLength = 3
	DefaultSampleCount         = 3
	DefaultSampleLength        = 200
	DefaultURLCount            = 5
	DefaultVolumeWeight        = 0.5
	DefaultDiversityWeight     = 0.3
	DefaultSentimentWeight     = 0.2
	DefaultExpectedMaxMentions = 50
	DefaultExpectedMaxSources  = 3
)

// Config holds the admission thresholds and strength constants. Zero values
// are replaced by the defaults above.
type Config struct {
	MinMentions         int
	MinSources          int
	ThemeTopK           int
	ThemeMinTokenLength int
	SampleCount         int
	SampleLength        int
	URLCount            int

	VolumeWeight        float64
	DiversityWeight     float64
	SentimentWeight     float64
	ExpectedMaxMentions int
	ExpectedMaxSources  int
}

func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (cfg Config) withDefaults() Config {
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	setInt(&cfg.MinMentions, DefaultMinMentions)
	setInt(&cfg.MinSources, DefaultMinSources)
	setInt(&cfg.ThemeTopK, DefaultThemeTopK)
	setInt(&cfg.ThemeMinTokenLength, DefaultThemeMinTokenLength)
	setInt(&cfg.SampleCount, DefaultSampleCount)
	setInt(&cfg.SampleLength, DefaultSampleLength)
	setInt(&cfg.URLCount, DefaultURLCount)
	setInt(&cfg.ExpectedMaxMentions, DefaultExpectedMaxMentions)
	setInt(&cfg.ExpectedMaxSources, DefaultExpectedMaxSources)

	if cfg.VolumeWeight == 0 && cfg.DiversityWeight == 0 && cfg.SentimentWeight == 0 {
		cfg.VolumeWeight = DefaultVolumeWeight
		cfg.DiversityWeight = DefaultDiversityWeight
		cfg.SentimentWeight = DefaultSentimentWeight
	}
	return cfg
}

type Option func(*Detector)

// WithClock replaces time.Now as the source of detected_at.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// Detector turns clusters into narratives. It holds no state between calls.
type Detector struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewDetector(cfg Config, logger *slog.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Detector{
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Detector) Config() Config {
	return d.cfg
}

// Detect returns one narrative per cluster that passes the mention and source
// gates, ordered by ascending cluster label.
func (d *Detector) Detect(clusters []clustering.Cluster) []models.Narrative {
	sorted := make([]clustering.Cluster, len(clusters))
	copy(sorted, clusters)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Label < sorted[j].Label })

	detectedAt := d.now().UTC()
	narratives := make([]models.Narrative, 0, len(sorted))

	for _, cl := range sorted {
		sources := distinctSources(cl.Items)
		if len(cl.Items) < d.cfg.MinMentions || len(sources) < d.cfg.MinSources {
			d.logger.Debug("[NarrativeDetector] Cluster rejected",
				slog.Int("label", cl.Label),
				slog.Int("mentions", len(cl.Items)),
				slog.Int("sources", len(sources)))
			continue
		}
		narratives = append(narratives, d.synthesize(cl, sources, detectedAt))
	}

	d.logger.Debug("[NarrativeDetector] Detection complete",
		slog.Int("clusters", len(clusters)),
		slog.Int("narratives", len(narratives)))
	return narratives
}

func (d *Detector) synthesize(cl clustering.Cluster, sources []string, detectedAt time.Time) models.Narrative {
	summary := summarizeSentiment(cl.Items)

	return models.Narrative{
		ID:            fmt.Sprintf("narrative_%d_%d", cl.Label, detectedAt.Unix()),
		DetectedAt:    detectedAt,
		Strength:      d.cfg.Strength(len(cl.Items), len(sources), summary.Average),
		MentionCount:  len(cl.Items),
		SourceCount:   len(sources),
		Sources:       sources,
		Sentiment:     summary,
		Themes:        nonNil(extractThemes(cl.Items, d.cfg.ThemeTopK, d.cfg.ThemeMinTokenLength)),
		TimeRange:     timeRange(cl.Items),
		SampleContent: d.samples(cl.Items),
		URLs:          d.urls(cl.Items),
	}
}

func distinctSources(items []models.Item) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, item := range items {
		if _, ok := seen[item.Source]; ok {
			continue
		}
		seen[item.Source] = struct{}{}
		sources = append(sources, item.Source)
	}
	sort.Strings(sources)
	return sources
}

func summarizeSentiment(items []models.Item) models.SentimentSummary {
	var summary models.SentimentSummary
	if len(items) == 0 {
		return summary
	}

	var total float64
	for _, item := range items {
		total += item.Sentiment
		switch sentiment.Label(item.Sentiment) {
		case "positive":
			summary.Positive++
		case "negative":
			summary.Negative++
		default:
			summary.Neutral++
		}
	}
	summary.Average = round3(total / float64(len(items)))
	return summary
}

func (d *Detector) samples(items []models.Item) []string {
	n := min(d.cfg.SampleCount, len(items))
	out := make([]string, 0, n)
	for _, item := range items[:n] {
		out = append(out, textutil.Truncate(item.Text, d.cfg.SampleLength))
	}
	return out
}

func (d *Detector) urls(items []models.Item) []string {
	n := min(d.cfg.URLCount, len(items))
	out := make([]string, 0, n)
	for _, item := range items[:n] {
		if item.URL != "" {
			out = append(out, item.URL)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
