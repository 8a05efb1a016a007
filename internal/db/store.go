package db

import (
	"context"

	"github.com/spacesedan/narratives/internal/models"
)

// NarrativeStore persists narratives. SaveNarratives is an upsert keyed on
// narrative id.
type NarrativeStore interface {
	SaveNarratives(ctx context.Context, narratives []models.Narrative) error
	Close() error
}
