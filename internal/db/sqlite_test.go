package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNarrative(id string, detected time.Time, strength float64) models.Narrative {
	start := detected.Add(-2 * time.Hour)
	end := detected.Add(-time.Hour)
	return models.Narrative{
		ID:            id,
		DetectedAt:    detected,
		Strength:      strength,
		MentionCount:  6,
		SourceCount:   2,
		Sources:       []string{"news", "rss"},
		Sentiment:     models.SentimentSummary{Average: -0.25, Negative: 4, Neutral: 2},
		Themes:        []string{"dock", "strike", "workers"},
		TimeRange:     models.TimeRange{Start: &start, End: &end},
		SampleContent: []string{"Dock workers strike"},
		URLs:          []string{"https://example.com/a"},
	}
}

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	detected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	want := testNarrative("narrative_1_0", detected, 0.82)
	require.NoError(t, store.SaveNarratives(ctx, []models.Narrative{want}))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want.ID, got[0].ID)
	assert.True(t, want.DetectedAt.Equal(got[0].DetectedAt))
	assert.Equal(t, want.Sources, got[0].Sources)
	assert.Equal(t, want.Sentiment, got[0].Sentiment)
	assert.Equal(t, want.Themes, got[0].Themes)
	require.NotNil(t, got[0].TimeRange.Start)
	assert.True(t, want.TimeRange.Start.Equal(*got[0].TimeRange.Start))
	assert.Equal(t, want.URLs, got[0].URLs)
}

func TestSQLiteUpsertReplacesExisting(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	detected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveNarratives(ctx, []models.Narrative{testNarrative("n", detected, 0.5)}))
	updated := testNarrative("n", detected, 0.9)
	updated.MentionCount = 11
	require.NoError(t, store.SaveNarratives(ctx, []models.Narrative{updated}))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.9, got[0].Strength)
	assert.Equal(t, 11, got[0].MentionCount)
}

func TestSQLiteKeepsSubMillisecondTimestamps(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	detected := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	want := testNarrative("precise", detected, 0.7)
	require.NoError(t, store.SaveNarratives(ctx, []models.Narrative{want}))

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, detected, got[0].DetectedAt)
	require.NotNil(t, got[0].TimeRange.Start)
	require.NotNil(t, got[0].TimeRange.End)
	assert.Equal(t, *want.TimeRange.Start, *got[0].TimeRange.Start)
	assert.Equal(t, *want.TimeRange.End, *got[0].TimeRange.End)
}

func TestSQLiteNilTimeRange(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()

	n := testNarrative("undated", time.Now(), 0.3)
	n.TimeRange = models.TimeRange{}
	require.NoError(t, store.SaveNarratives(ctx, []models.Narrative{n}))

	got, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].TimeRange.Start)
	assert.Nil(t, got[0].TimeRange.End)
}

func TestSQLiteRecentOrdering(t *testing.T) {
	store := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveNarratives(ctx, []models.Narrative{
		testNarrative("old", base, 0.9),
		testNarrative("new_weak", base.Add(time.Hour), 0.4),
		testNarrative("new_strong", base.Add(time.Hour), 0.8),
	}))

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new_strong", got[0].ID)
	assert.Equal(t, "new_weak", got[1].ID)
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "narratives.db")
	store, err := OpenSQLite(path, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, store.SaveNarratives(context.Background(), nil))
	assert.NoError(t, store.Close())
	assert.FileExists(t, path)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ", logging.Discard())
	assert.Error(t, err)
}
