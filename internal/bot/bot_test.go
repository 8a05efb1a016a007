package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spacesedan/narratives/internal/alerts"
	"github.com/spacesedan/narratives/internal/clustering"
	"github.com/spacesedan/narratives/internal/db"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/monitoring"
	"github.com/spacesedan/narratives/internal/narrative"
	"github.com/spacesedan/narratives/internal/pipeline"
	"github.com/spacesedan/narratives/internal/processing"
	"github.com/spacesedan/narratives/internal/sentiment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	name  string
	items []models.Item
	err   error
	calls atomic.Int32
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(ctx context.Context) ([]models.Item, error) {
	f.calls.Add(1)
	return f.items, f.err
}

type fakeStore struct {
	saved [][]models.Narrative
	err   error
}

func (f *fakeStore) SaveNarratives(ctx context.Context, ns []models.Narrative) error {
	f.saved = append(f.saved, ns)
	return f.err
}

func (f *fakeStore) Close() error { return nil }

type countingSink struct{ sent int }

func (s *countingSink) Name() string { return "count" }

func (s *countingSink) Send(ctx context.Context, ns []models.Narrative) error {
	s.sent += len(ns)
	return nil
}

func strikeItems(source string, n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			Source: source,
			Title:  fmt.Sprintf("%s report %d", source, i),
			Text:   "Dock workers strike shuts down major ports nationwide",
			URL:    fmt.Sprintf("https://%s.example.com/%d", source, i),
		}
	}
	return items
}

type harness struct {
	bot    *Bot
	store  *fakeStore
	sink   *countingSink
	health *monitoring.Health
	outDir string
}

func newHarness(t *testing.T, collectors ...processing.Collector) *harness {
	t.Helper()
	logger := logging.Discard()
	h := &harness{
		store:  &fakeStore{},
		sink:   &countingSink{},
		health: monitoring.NewHealth(":0", logger),
		outDir: t.TempDir(),
	}

	engine := pipeline.NewEngine(
		sentiment.NewScorer(logger),
		clustering.NewClusterer(clustering.DefaultConfig(), logger),
		narrative.NewDetector(narrative.DefaultConfig(), logger),
		logger,
	)

	b, err := New(Deps{
		Collectors: collectors,
		Normalizer: processing.NewNormalizer(logger),
		Engine:     engine,
		Notifier:   alerts.NewNotifier(0.25, []alerts.Sink{h.sink}, logger),
		Store:      h.store,
		Writer:     db.NewResultsWriter(h.outDir, logger),
		Health:     h.health,
	}, time.Minute, logger)
	require.NoError(t, err)
	h.bot = b
	return h
}

func TestRunCycleDetectsAndHandlesNarratives(t *testing.T) {
	h := newHarness(t,
		&fakeCollector{name: "news", items: strikeItems(models.SourceNews, 3)},
		&fakeCollector{name: "rss", items: strikeItems(models.SourceRSS, 3)},
		&fakeCollector{name: "broken", err: errors.New("timeout")},
	)

	status := h.bot.RunCycle(context.Background())
	assert.NotEmpty(t, status.CycleID)
	assert.Equal(t, 6, status.Items)
	assert.Equal(t, 1, status.Narratives)
	assert.Equal(t, 1, status.Alerts)
	assert.Empty(t, status.Error)

	assert.Equal(t, 1, h.sink.sent)
	require.Len(t, h.store.saved, 1)
	assert.Equal(t, []string{"news", "rss"}, h.store.saved[0][0].Sources)

	entries, err := os.ReadDir(h.outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	snap := h.health.Snapshot()
	assert.Equal(t, monitoring.STATUS_OK, snap.Status)
	require.NotNil(t, snap.LastCycle)
	assert.Equal(t, status.CycleID, snap.LastCycle.CycleID)
}

func TestRunCycleWithNothingCollected(t *testing.T) {
	h := newHarness(t, &fakeCollector{name: "empty"})

	status := h.bot.RunCycle(context.Background())
	assert.Zero(t, status.Items)
	assert.Zero(t, status.Narratives)
	assert.Empty(t, h.store.saved)
	assert.EqualValues(t, 1, h.health.Snapshot().Cycles)
}

func TestRunCycleContinuesAfterStoreFailure(t *testing.T) {
	h := newHarness(t,
		&fakeCollector{name: "news", items: strikeItems(models.SourceNews, 3)},
		&fakeCollector{name: "rss", items: strikeItems(models.SourceRSS, 3)},
	)
	h.store.err = errors.New("disk full")

	status := h.bot.RunCycle(context.Background())
	assert.Contains(t, status.Error, "disk full")

	entries, err := os.ReadDir(h.outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, monitoring.STATUS_DEGRADED, h.health.Snapshot().Status)
}

func TestStartRunsFirstCycleImmediately(t *testing.T) {
	collector := &fakeCollector{name: "news", items: strikeItems(models.SourceNews, 2)}
	h := newHarness(t, collector)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.bot.Start(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		return h.health.Snapshot().Cycles >= 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.EqualValues(t, 1, collector.calls.Load())
}

func TestStartRejectsBadInterval(t *testing.T) {
	h := newHarness(t, &fakeCollector{name: "news"})
	assert.Error(t, h.bot.Start(context.Background(), 0))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, 0, logging.Discard())
	assert.Error(t, err)
}

func TestRunCycleWithNilLogger(t *testing.T) {
	engine := pipeline.NewEngine(sentiment.NewScorer(nil), clustering.NewClusterer(clustering.DefaultConfig(), nil),
		narrative.NewDetector(narrative.DefaultConfig(), nil), nil)
	b, err := New(Deps{
		Collectors: []processing.Collector{&fakeCollector{name: "news", items: strikeItems(models.SourceNews, 2)}},
		Normalizer: processing.NewNormalizer(nil),
		Engine:     engine,
		Notifier:   alerts.NewNotifier(0.7, nil, nil),
	}, 0, nil)
	require.NoError(t, err)

	status := b.RunCycle(context.Background())
	assert.Equal(t, 2, status.Items)
	assert.Zero(t, status.Narratives)
}
