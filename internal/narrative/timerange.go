package narrative

import (
	"strings"
	"time"

	"github.com/spacesedan/narratives/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 timestamp. A trailing Z is UTC and times
// without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func timeRange(items []models.Item) models.TimeRange {
	var start, end *time.Time
	for _, item := range items {
		t, ok := ParseTimestamp(item.CreatedAt)
		if !ok {
			continue
		}
		if start == nil || t.Before(*start) {
			s := t
			start = &s
		}
		if end == nil || t.After(*end) {
			e := t
			end = &e
		}
	}
	return models.TimeRange{Start: start, End: end}
}
