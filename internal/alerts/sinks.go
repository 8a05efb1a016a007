package alerts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spacesedan/narratives/internal/clients/kafka_client"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"github.com/spacesedan/narratives/internal/utils"
)

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, narratives []models.Narrative) error {
	for _, n := range narratives {
		s.logger.Warn("[Alerts] Strong narrative detected",
			slog.String("narrative_id", n.ID),
			slog.Float64("strength", n.Strength),
			slog.Int("mentions", n.MentionCount),
			slog.String("sources", strings.Join(n.Sources, ",")),
			slog.String("themes", strings.Join(n.Themes, ", ")),
			slog.Float64("sentiment", n.Sentiment.Average))
	}
	return nil
}

type publisher interface {
	Publish(ctx context.Context, topic string, msgs []kafka_client.Message) error
}

const maxPendingAlerts = 500

// KafkaSink publishes one message per narrative keyed by its id. Messages
// that fail to publish are kept and retried with the next Send.
type KafkaSink struct {
	producer publisher
	topic    string
	pending  *utils.BatchBuffer[kafka_client.Message]
	logger   *slog.Logger
}

func NewKafkaSink(producer publisher, topic string, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = logging.Discard()
	}
	if topic == "" {
		topic = kafka_client.KAFKA_TOPIC_NARRATIVE_ALERTS
	}
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		pending:  utils.NewBatchBuffer[kafka_client.Message](),
		logger:   logger,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, narratives []models.Narrative) error {
	for _, n := range narratives {
		s.pending.Add(kafka_client.Message{Key: n.ID, Value: n})
	}

	batch := s.pending.GetAndClear()
	if len(batch) == 0 {
		return nil
	}
	s.logger.Debug("[Alerts] Publishing alerts", slog.Int("batch_size", len(batch)))

	if err := s.producer.Publish(ctx, s.topic, batch); err != nil {
		if len(batch) > maxPendingAlerts {
			batch = batch[len(batch)-maxPendingAlerts:]
		}
		s.pending.Add(batch...)
		return err
	}
	return nil
}

func (s *KafkaSink) Pending() int {
	return s.pending.Size()
}
