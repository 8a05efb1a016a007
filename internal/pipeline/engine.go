package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/narratives/internal/clustering"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/narrative"
	"github.com/spacesedan/narratives/internal/sentiment"
)

// Result describes one pass of the engine over a batch.
type Result struct {
	Narratives []models.Narrative
	Items      int
	Clusters   int
	Noise      int
	// Fallback is set when clustering failed and the batch was treated as one cluster.
	Fallback   bool
	ClusterErr error
	// Err is set only if a stage panicked; Narratives is empty in that case.
	Err      error
	Duration time.Duration
}

// Engine runs scoring, clustering and synthesis over a batch, in that order.
// It performs no I/O and keeps nothing between runs.
type Engine struct {
	scorer    *sentiment.Scorer
	clusterer *clustering.Clusterer
	detector  *narrative.Detector
	logger    *slog.Logger
}

func NewEngine(scorer *sentiment.Scorer, clusterer *clustering.Clusterer, detector *narrative.Detector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		scorer:    scorer,
		clusterer: clusterer,
		detector:  detector,
		logger:    logger,
	}
}

func (e *Engine) Run(items []models.Item) (res Result) {
	start := time.Now()
	res.Items = len(items)
	res.Narratives = []models.Narrative{}

	defer func() {
		if r := recover(); r != nil {
			res.Narratives = []models.Narrative{}
			res.Err = fmt.Errorf("[Engine] panic during detection: %v", r)
			e.logger.Error("[Engine] Detection aborted", slog.String("error", res.Err.Error()))
		}
		res.Duration = time.Since(start)
	}()

	if len(items) == 0 {
		return res
	}

	scored := e.scorer.Score(items)

	clustered := e.clusterer.Cluster(scored)
	res.Clusters = len(clustered.Clusters)
	res.Noise = clustered.Noise
	res.Fallback = clustered.Fallback
	res.ClusterErr = clustered.Err

	res.Narratives = e.detector.Detect(clustered.Clusters)

	e.logger.Info("[Engine] Batch analyzed",
		slog.Int("items", res.Items),
		slog.Int("clusters", res.Clusters),
		slog.Int("noise", res.Noise),
		slog.Int("narratives", len(res.Narratives)),
		slog.Bool("fallback", res.Fallback),
		slog.Duration("took", time.Since(start)))

	return res
}
