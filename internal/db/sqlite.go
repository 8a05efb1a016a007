package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS narratives (
	id             TEXT PRIMARY KEY,
	detected_at    INTEGER NOT NULL,
	strength       REAL NOT NULL,
	mention_count  INTEGER NOT NULL,
	source_count   INTEGER NOT NULL,
	sources        TEXT NOT NULL,
	sentiment      TEXT NOT NULL,
	themes         TEXT NOT NULL,
	time_start     INTEGER,
	time_end       INTEGER,
	sample_content TEXT NOT NULL,
	urls           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_narratives_detected_at ON narratives (detected_at DESC);
`

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("[SQLite] storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("[SQLite] create data dir: %w", err)
		}
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("[SQLite] open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("[SQLite] ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("[SQLite] apply schema: %w", err)
	}

	logger.Info("[SQLite] Narrative store ready", slog.String("path", path))
	return &SQLiteStore{db: sqlDB, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) SaveNarratives(ctx context.Context, narratives []models.Narrative) error {
	if len(narratives) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[SQLite] begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO narratives (id, detected_at, strength, mention_count, source_count, sources,
			sentiment, themes, time_start, time_end, sample_content, urls)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			detected_at = excluded.detected_at,
			strength = excluded.strength,
			mention_count = excluded.mention_count,
			source_count = excluded.source_count,
			sources = excluded.sources,
			sentiment = excluded.sentiment,
			themes = excluded.themes,
			time_start = excluded.time_start,
			time_end = excluded.time_end,
			sample_content = excluded.sample_content,
			urls = excluded.urls`)
	if err != nil {
		return fmt.Errorf("[SQLite] prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range narratives {
		row, err := toRow(n)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("[SQLite] insert narrative %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[SQLite] commit: %w", err)
	}
	s.logger.Info("[SQLite] Successfully stored narratives", slog.Int("count", len(narratives)))
	return nil
}

// Recent returns up to limit narratives, newest first, strongest first
// within the same detection time.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.Narrative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, detected_at, strength, mention_count, source_count, sources,
			sentiment, themes, time_start, time_end, sample_content, urls
		FROM narratives
		ORDER BY detected_at DESC, strength DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("[SQLite] query narratives: %w", err)
	}
	defer rows.Close()

	var out []models.Narrative
	for rows.Next() {
		n, err := scanNarrative(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Timestamps are stored as Unix nanoseconds so parsed created_at values
// keep their full precision.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}

func toRow(n models.Narrative) ([]any, error) {
	encoded := make([]string, 0, 5)
	for _, v := range []any{n.Sources, n.Sentiment, n.Themes, n.SampleContent, n.URLs} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("[SQLite] encode narrative %s: %w", n.ID, err)
		}
		encoded = append(encoded, string(b))
	}

	return []any{
		n.ID, toNanos(n.DetectedAt), n.Strength, n.MentionCount, n.SourceCount,
		encoded[0], encoded[1], encoded[2],
		nullableNanos(n.TimeRange.Start), nullableNanos(n.TimeRange.End),
		encoded[3], encoded[4],
	}, nil
}

func scanNarrative(rows *sql.Rows) (models.Narrative, error) {
	var (
		n                                         models.Narrative
		detectedAt                                int64
		start, end                                sql.NullInt64
		sources, sentiment, themes, samples, urls string
	)
	if err := rows.Scan(&n.ID, &detectedAt, &n.Strength, &n.MentionCount, &n.SourceCount,
		&sources, &sentiment, &themes, &start, &end, &samples, &urls); err != nil {
		return models.Narrative{}, fmt.Errorf("[SQLite] scan narrative: %w", err)
	}

	n.DetectedAt = fromNanos(detectedAt)
	if start.Valid {
		t := fromNanos(start.Int64)
		n.TimeRange.Start = &t
	}
	if end.Valid {
		t := fromNanos(end.Int64)
		n.TimeRange.End = &t
	}

	for _, f := range []struct {
		raw    string
		target any
	}{
		{sources, &n.Sources},
		{sentiment, &n.Sentiment},
		{themes, &n.Themes},
		{samples, &n.SampleContent},
		{urls, &n.URLs},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.target); err != nil {
			return models.Narrative{}, fmt.Errorf("[SQLite] decode narrative %s: %w", n.ID, err)
		}
	}
	return n, nil
}
