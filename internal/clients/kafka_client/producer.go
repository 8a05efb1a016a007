package kafka_client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/narratives/internal/logging"
)

// Message is one record to publish. Value is JSON encoded.
type Message struct {
	Key   string
	Value any
}

type Producer struct {
	producer      *kafka.Producer
	transactional bool
	logger        *slog.Logger
	done          chan struct{}
}

func NewProducer(ctx context.Context, cfg KafkaConfig, logger *slog.Logger) (*Producer, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Info("[KafkaClient] Initializing Kafka Producer...", slog.String("broker", cfg.Broker))

	p, err := kafka.NewProducer(cfg.producerConfig())
	if err != nil {
		return nil, fmt.Errorf("[KafkaClient] Failed to create producer: %w", err)
	}

	if cfg.TransactionalID != "" {
		if err := p.InitTransactions(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("[KafkaClient] Failed to init transactions: %w", err)
		}
	}

	prod := &Producer{
		producer:      p,
		transactional: cfg.TransactionalID != "",
		logger:        logger,
		done:          make(chan struct{}),
	}
	go prod.watchDeliveries()

	logger.Info("[KafkaClient] Kafka Producer initialized successfully")
	return prod, nil
}

func (p *Producer) watchDeliveries() {
	defer close(p.done)
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.Error("[KafkaClient] Delivery failed",
					slog.String("topic", *ev.TopicPartition.Topic),
					slog.String("error", ev.TopicPartition.Error.Error()))
			}
		case kafka.Error:
			p.logger.Warn("[KafkaClient] Producer error", slog.String("error", ev.Error()))
		}
	}
}

// Publish writes msgs to topic. With a transactional producer the batch is
// committed atomically, otherwise each message is produced independently.
func (p *Producer) Publish(ctx context.Context, topic string, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	records := make([]*kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		value, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("[KafkaClient] failed to marshal message %s: %w", m.Key, err)
		}
		records = append(records, &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            []byte(m.Key),
			Value:          value,
		})
	}

	if p.transactional {
		if err := p.producer.BeginTransaction(); err != nil {
			return fmt.Errorf("[KafkaClient] failed to begin transaction: %w", err)
		}
	}

	for _, rec := range records {
		if err := p.produceWithRetry(ctx, rec); err != nil {
			if p.transactional {
				if abortErr := p.producer.AbortTransaction(ctx); abortErr != nil {
					return fmt.Errorf("[KafkaClient] failed to abort transaction after produce error: %w", abortErr)
				}
			}
			return err
		}
	}

	if p.transactional {
		var commitErr error
		for i := 0; i < MAX_RETRIES; i++ {
			if commitErr = p.producer.CommitTransaction(ctx); commitErr == nil {
				break
			}
			p.logger.Warn("[KafkaClient] Failed to commit transaction, retrying...",
				slog.Int("attempt", i+1))
		}
		if commitErr != nil {
			return fmt.Errorf("[KafkaClient] failed to commit transaction after %d retries: %w", MAX_RETRIES, commitErr)
		}
	}

	p.logger.Info("[KafkaClient] Published messages",
		slog.String("topic", topic),
		slog.Int("count", len(records)))
	return nil
}

func (p *Producer) produceWithRetry(ctx context.Context, msg *kafka.Message) error {
	var err error
	for i := 0; i < MAX_RETRIES; i++ {
		if err = p.producer.Produce(msg, nil); err == nil {
			return nil
		}
		p.logger.Warn("[KafkaClient] Failed to produce message, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(RETRY_DELAY):
		}
	}
	return fmt.Errorf("[KafkaClient] failed to produce message: %w", err)
}

func (p *Producer) Close() {
	p.logger.Info("[KafkaClient] Flushing Kafka producer before shutdown...")
	if remaining := p.producer.Flush(FLUSH_TIMEOUT); remaining > 0 {
		p.logger.Warn("[KafkaClient] Not all messages were delivered before shutdown",
			slog.Int("remaining", remaining))
	}
	p.producer.Close()
	<-p.done
	p.logger.Info("[KafkaClient] Kafka producer shut down")
}
