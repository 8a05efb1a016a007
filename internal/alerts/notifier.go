package alerts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

const DefaultThreshold = 0.7

// Sink delivers alerts somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, narratives []models.Narrative) error
}

// Cooldown suppresses repeat alerts. Acquire reports false when key was
// already claimed within ttl. Release gives a claimed key back.
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type Option func(*Notifier)

func WithCooldown(c Cooldown, ttl time.Duration) Option {
	return func(n *Notifier) {
		n.cooldown = c
		n.cooldownTTL = ttl
	}
}

type Notifier struct {
	threshold   float64
	sinks       []Sink
	cooldown    Cooldown
	cooldownTTL time.Duration
	logger      *slog.Logger
}

func NewNotifier(threshold float64, sinks []Sink, logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = logging.Discard()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	n := &Notifier{threshold: threshold, sinks: sinks, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Strong returns the narratives at or above the alert threshold.
func (n *Notifier) Strong(narratives []models.Narrative) []models.Narrative {
	var strong []models.Narrative
	for _, nar := range narratives {
		if nar.Strength >= n.threshold {
			strong = append(strong, nar)
		}
	}
	return strong
}

// Notify sends every strong narrative that is not cooling down to all sinks
// and returns what was sent. Sink failures are joined into the error; the
// remaining sinks are still tried. When every sink fails nothing counts as
// sent and the cooldown keys claimed for this batch are released.
func (n *Notifier) Notify(ctx context.Context, narratives []models.Narrative) ([]models.Narrative, error) {
	strong := n.Strong(narratives)
	if len(strong) == 0 {
		return nil, nil
	}

	toSend := make([]models.Narrative, 0, len(strong))
	var claimed []string
	for _, nar := range strong {
		key := Fingerprint(nar)
		skip, won := n.claim(ctx, nar, key)
		if skip {
			n.logger.Info("[Alerts] Skipping narrative in cooldown",
				slog.String("narrative_id", nar.ID))
			continue
		}
		if won {
			claimed = append(claimed, key)
		}
		toSend = append(toSend, nar)
	}
	if len(toSend) == 0 {
		return nil, nil
	}

	n.logger.Warn("[Alerts] Found strong narratives", slog.Int("count", len(toSend)))

	var errs []error
	for _, sink := range n.sinks {
		if err := sink.Send(ctx, toSend); err != nil {
			n.logger.Error("[Alerts] Sink failed",
				slog.String("sink", sink.Name()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("[Alerts] %s: %w", sink.Name(), err))
		}
	}

	if len(n.sinks) > 0 && len(errs) == len(n.sinks) {
		n.release(ctx, claimed)
		return nil, errors.Join(errs...)
	}
	return toSend, errors.Join(errs...)
}

// claim reports whether nar is cooling down, and whether this call took
// the cooldown key for it.
func (n *Notifier) claim(ctx context.Context, nar models.Narrative, key string) (skip bool, won bool) {
	if n.cooldown == nil {
		return false, false
	}
	ok, err := n.cooldown.Acquire(ctx, key, n.cooldownTTL)
	if err != nil {
		n.logger.Warn("[Alerts] Cooldown check failed, alerting anyway",
			slog.String("narrative_id", nar.ID),
			slog.String("error", err.Error()))
		return false, false
	}
	return !ok, ok
}

func (n *Notifier) release(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := n.cooldown.Release(ctx, key); err != nil {
			n.logger.Warn("[Alerts] Failed to release cooldown",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
}

// Fingerprint identifies a narrative across cycles by its sources and top
// themes, since ids change every detection pass.
func Fingerprint(nar models.Narrative) string {
	sources := append([]string(nil), nar.Sources...)
	sort.Strings(sources)

	themes := nar.Themes
	if len(themes) > 5 {
		themes = themes[:5]
	}
	themes = append([]string(nil), themes...)
	sort.Strings(themes)

	sum := sha256.Sum256([]byte(strings.Join(sources, ",") + "|" + strings.Join(themes, ",")))
	return hex.EncodeToString(sum[:16])
}
