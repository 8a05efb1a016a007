package processing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spacesedan/narratives/internal/models"
)

// Collector fetches one batch of raw items from a single outlet.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]models.Item, error)
}

// CollectAll runs every collector concurrently and concatenates their items
// in collector order. A failing collector is logged and contributes nothing.
func CollectAll(ctx context.Context, collectors []Collector, logger *slog.Logger) []models.Item {
	results := make([][]models.Item, len(collectors))

	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func(i int, c Collector) {
			defer wg.Done()
			start := time.Now()

			items, err := c.Collect(ctx)
			if err != nil {
				logger.Error("[Collector] Error collecting",
					slog.String("collector", c.Name()),
					slog.String("error", err.Error()))
				return
			}
			logger.Info("[Collector] Collected items",
				slog.String("collector", c.Name()),
				slog.Int("items", len(items)),
				slog.Duration("took", time.Since(start)))
			results[i] = items
		}(i, c)
	}
	wg.Wait()

	var all []models.Item
	for _, items := range results {
		all = append(all, items...)
	}
	logger.Info("[Collector] Total items collected", slog.Int("items", len(all)))
	return all
}
