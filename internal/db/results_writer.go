package db

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

const RESULTS_TIME_FORMAT = "20060102_150405"

// ResultsWriter dumps every narrative of a cycle into its own timestamped
// JSON file under dir.
type ResultsWriter struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewResultsWriter(dir string, logger *slog.Logger) *ResultsWriter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ResultsWriter{dir: dir, logger: logger, now: time.Now}
}

func (w *ResultsWriter) Write(narratives []models.Narrative) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("[Results] create output dir: %w", err)
	}
	if narratives == nil {
		narratives = []models.Narrative{}
	}

	data, err := json.MarshalIndent(narratives, "", "  ")
	if err != nil {
		return "", fmt.Errorf("[Results] encode narratives: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("narratives_%s.json", w.now().Format(RESULTS_TIME_FORMAT)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("[Results] write %s: %w", path, err)
	}

	w.logger.Info("[Results] Saved narratives",
		slog.String("path", path),
		slog.Int("count", len(narratives)))
	return path, nil
}
