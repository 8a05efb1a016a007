package clustering

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

const (
	DefaultMaxFeatures = 1000
	DefaultEps         = 0.3
	DefaultMinSamples  = 5
)

type Config struct {
	MaxFeatures int
	Eps         float64
	MinSamples  int
}

func DefaultConfig() Config {
	return Config{
		MaxFeatures: DefaultMaxFeatures,
		Eps:         DefaultEps,
		MinSamples:  DefaultMinSamples,
	}
}

// Cluster is a group of items that share vocabulary. Items keep the order they
// had in the input batch.
type Cluster struct {
	Label int
	Items []models.Item
}

// Result is the outcome of clustering one batch. When Fallback is set the
// whole batch was returned as a single cluster and Err says why.
type Result struct {
	Clusters []Cluster
	Noise    int
	Fallback bool
	Err      error
}

type Clusterer struct {
	cfg    Config
	logger *slog.Logger
}

func NewClusterer(cfg Config, logger *slog.Logger) *Clusterer {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = DefaultMaxFeatures
	}
	if cfg.Eps <= 0 {
		cfg.Eps = DefaultEps
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultMinSamples
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Clusterer{cfg: cfg, logger: logger}
}

// Cluster groups items by TF-IDF cosine similarity using DBSCAN. Noise items
// are dropped. Batches with fewer than two items come back as one cluster.
// If vectorizing or clustering fails, every item is returned in cluster 0.
func (c *Clusterer) Cluster(items []models.Item) Result {
	if len(items) < 2 {
		return Result{Clusters: []Cluster{{Label: 0, Items: copyItems(items)}}}
	}

	start := time.Now()
	labels, err := c.label(items)
	if err != nil {
		c.logger.Error("[Clusterer] Clustering failed, returning batch as a single cluster",
			slog.Int("items", len(items)),
			slog.String("error", err.Error()))
		return Result{
			Clusters: []Cluster{{Label: 0, Items: copyItems(items)}},
			Fallback: true,
			Err:      err,
		}
	}

	byLabel := make(map[int][]models.Item)
	noise := 0
	for i, label := range labels {
		if label == Noise {
			noise++
			continue
		}
		byLabel[label] = append(byLabel[label], items[i])
	}

	clusters := make([]Cluster, 0, len(byLabel))
	for label, members := range byLabel {
		clusters = append(clusters, Cluster{Label: label, Items: members})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Label < clusters[j].Label })

	c.logger.Debug("[Clusterer] Clustered batch",
		slog.Int("items", len(items)),
		slog.Int("clusters", len(clusters)),
		slog.Int("noise", noise),
		slog.Duration("took", time.Since(start)))

	return Result{Clusters: clusters, Noise: noise}
}

func (c *Clusterer) label(items []models.Item) (labels []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			labels = nil
			err = fmt.Errorf("[Clusterer] panic during clustering: %v", r)
		}
	}()

	docs := make([]string, len(items))
	for i, item := range items {
		docs[i] = item.EffectiveText()
	}

	vectors, err := Vectorizer{MaxFeatures: c.cfg.MaxFeatures}.FitTransform(docs)
	if err != nil {
		return nil, fmt.Errorf("[Clusterer] failed to vectorize batch: %w", err)
	}

	return DBSCAN(vectors.CosineDistances(), c.cfg.Eps, c.cfg.MinSamples), nil
}

func copyItems(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	return out
}
