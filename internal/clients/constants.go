package clients

import "time"

const (
	MAX_RETRIES     = 5
	INITIAL_BACKOFF = 1 * time.Second
	MAX_BACKOFF     = 32 * time.Second
	USER_AGENT      = "narratives-bot/1.0 (+https://github.com/spacesedan/narratives)"
	REQUEST_TIMEOUT = 10 * time.Second
)

// nextBackoff doubles backoff up to MAX_BACKOFF.
func nextBackoff(backoff time.Duration) time.Duration {
	backoff *= 2
	if backoff > MAX_BACKOFF {
		backoff = MAX_BACKOFF
	}
	return backoff
}
