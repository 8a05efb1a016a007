package kafka_client

import "github.com/confluentinc/confluent-kafka-go/kafka"

type KafkaConfig struct {
	Broker          string
	Topic           string
	TransactionalID string
}

func (c KafkaConfig) producerConfig() *kafka.ConfigMap {
	cm := &kafka.ConfigMap{
		"bootstrap.servers":                     c.Broker,
		"security.protocol":                     "PLAINTEXT",
		"api.version.request":                   "true",
		"enable.idempotence":                    true,
		"acks":                                  "all",
		"max.in.flight.requests.per.connection": 1,
	}
	if c.TransactionalID != "" {
		_ = cm.SetKey("transactional.id", c.TransactionalID)
	}
	return cm
}
