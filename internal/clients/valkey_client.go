package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/valkey-io/valkey-go"
)

const VALKEY_ALERT_PREFIX = "narratives:alerted:"

type ValkeyOptions struct {
	Address  string
	Password string
	TLS      bool
}

type ValkeyClient struct {
	Client valkey.Client
	opts   ValkeyOptions
	logger *slog.Logger
	mu     sync.Mutex
}

func (o ValkeyOptions) clientOption() valkey.ClientOption {
	opts := valkey.ClientOption{
		InitAddress:      []string{o.Address},
		Password:         o.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if o.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}
	return opts
}

func connectValkey(o ValkeyOptions) (valkey.Client, error) {
	client, err := valkey.NewClient(o.clientOption())
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func NewValkeyClient(opts ValkeyOptions, logger *slog.Logger) (*ValkeyClient, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	client, err := connectValkey(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("[ValkeyClient] Successfully connected to valkey", slog.String("address", opts.Address))
	return &ValkeyClient{Client: client, opts: opts, logger: logger}, nil
}

func (vc *ValkeyClient) Close() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.Client.Close()
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	vc.logger.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(vc.opts)
	if err != nil {
		vc.logger.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	vc.logger.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

// Acquire sets key with a TTL only if it does not exist yet. It reports
// false when the key was already present.
func (vc *ValkeyClient) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c := vc.client()
	cmd := c.B().Set().Key(VALKEY_ALERT_PREFIX + key).Value(time.Now().UTC().Format(time.RFC3339)).
		Nx().ExSeconds(int64(ttl.Seconds())).Build().Pin()

	res := vc.DoWithRetry(ctx, cmd, 3)
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return false, fmt.Errorf("[ValkeyClient] set nx failed: %w", err)
	}
	return true, nil
}

// Release deletes a key claimed with Acquire.
func (vc *ValkeyClient) Release(ctx context.Context, key string) error {
	c := vc.client()
	cmd := c.B().Del().Key(VALKEY_ALERT_PREFIX + key).Build().Pin()

	if err := vc.DoWithRetry(ctx, cmd, 3).Error(); err != nil {
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return fmt.Errorf("[ValkeyClient] del failed: %w", err)
	}
	return nil
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.client().Do(ctx, completed)
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) {
			break
		}

		vc.logger.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		select {
		case <-ctx.Done():
			return result
		case <-time.After(250 * time.Millisecond):
		}
	}
	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
