package kafka_client

import "time"

const (
	KAFKA_TOPIC_NARRATIVE_ALERTS = "narrative-alerts" // strong narratives, one message per narrative
)

const (
	MAX_RETRIES   = 3
	RETRY_DELAY   = 500 * time.Millisecond
	FLUSH_TIMEOUT = 5000 // ms
)
