package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spacesedan/narratives/internal/alerts"
	"github.com/spacesedan/narratives/internal/db"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/monitoring"
	"github.com/spacesedan/narratives/internal/pipeline"
	"github.com/spacesedan/narratives/internal/processing"
)

// Deps wires the bot's collaborators. Store, Writer and Health are optional.
type Deps struct {
	Collectors []processing.Collector
	Normalizer *processing.Normalizer
	Engine     *pipeline.Engine
	Notifier   *alerts.Notifier
	Store      db.NarrativeStore
	Writer     *db.ResultsWriter
	Health     *monitoring.Health
}

type Bot struct {
	Deps
	cycleTimeout time.Duration
	logger       *slog.Logger
}

func New(deps Deps, cycleTimeout time.Duration, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if deps.Normalizer == nil || deps.Engine == nil || deps.Notifier == nil {
		return nil, errors.New("[Bot] normalizer, engine and notifier are required")
	}
	if len(deps.Collectors) == 0 {
		return nil, errors.New("[Bot] no collectors configured")
	}
	return &Bot{Deps: deps, cycleTimeout: cycleTimeout, logger: logger}, nil
}

// RunCycle collects, analyzes and handles one batch. Collaborator failures
// are logged and recorded on the returned status; the cycle always finishes.
func (b *Bot) RunCycle(ctx context.Context) monitoring.CycleStatus {
	status := monitoring.CycleStatus{CycleID: uuid.NewString(), StartedAt: time.Now()}
	logger := b.logger.With(slog.String("cycle_id", status.CycleID))
	if b.Health != nil {
		b.Health.CycleStarted()
	}
	logger.Info("[Bot] Starting monitoring cycle")

	var errs []error
	defer func() {
		status.FinishedAt = time.Now()
		if err := errors.Join(errs...); err != nil {
			status.Error = err.Error()
		}
		if b.Health != nil {
			b.Health.CycleFinished(status)
		}
		logger.Info("[Bot] Cycle complete",
			slog.Int("items", status.Items),
			slog.Int("narratives", status.Narratives),
			slog.Int("alerts", status.Alerts),
			slog.Duration("took", status.FinishedAt.Sub(status.StartedAt)))
	}()

	items := processing.CollectAll(ctx, b.Collectors, logger)
	items = b.Normalizer.Normalize(items)
	status.Items = len(items)
	if len(items) == 0 {
		logger.Warn("[Bot] No items collected")
		return status
	}

	res := b.Engine.Run(items)
	status.Narratives = len(res.Narratives)
	status.Fallback = res.Fallback
	if res.Err != nil {
		errs = append(errs, res.Err)
	}

	errs = append(errs, b.handle(ctx, logger, res.Narratives, &status)...)
	return status
}

func (b *Bot) handle(ctx context.Context, logger *slog.Logger, narratives []models.Narrative, status *monitoring.CycleStatus) []error {
	var errs []error

	sent, err := b.Notifier.Notify(ctx, narratives)
	status.Alerts = len(sent)
	if err != nil {
		errs = append(errs, err)
	}

	if strong := b.Notifier.Strong(narratives); b.Store != nil && len(strong) > 0 {
		if err := b.Store.SaveNarratives(ctx, strong); err != nil {
			logger.Error("[Bot] Failed to store narratives", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if b.Writer != nil {
		if _, err := b.Writer.Write(narratives); err != nil {
			logger.Error("[Bot] Failed to write results", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errs
}

// Start runs a cycle immediately and then every interval until ctx is done.
// A cycle still running when the next one is due causes that tick to be skipped.
func (b *Bot) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("[Bot] invalid interval %s", interval)
	}

	cronLogger := cronLogger{b.logger}
	job := cron.NewChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	).Then(cron.FuncJob(func() { b.scheduledCycle(ctx) }))

	c := cron.New(cron.WithLogger(cronLogger))
	c.Schedule(cron.Every(interval), job)

	b.logger.Info("[Bot] Monitoring started", slog.Duration("interval", interval))
	first := make(chan struct{})
	go func() {
		defer close(first)
		job.Run()
	}()
	c.Start()

	<-ctx.Done()
	b.logger.Info("[Bot] Stopping, waiting for running cycle")
	<-c.Stop().Done()
	<-first
	return nil
}

func (b *Bot) scheduledCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if b.cycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cycleTimeout)
		defer cancel()
	}
	b.RunCycle(ctx)
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("[Scheduler] "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("[Scheduler] "+msg, append([]any{slog.String("error", err.Error())}, keysAndValues...)...)
}
