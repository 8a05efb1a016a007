package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
	REDDIT_MAX_PAGE = 100
)

var ErrMissingRedditCredentials = errors.New("[RedditClient] client id or secret is missing")

type RedditOptions struct {
	ClientID          string
	ClientSecret      string
	RequestsPerMinute int
	BaseURL           string
	TokenURL          string
}

type RedditClient struct {
	config  *clientcredentials.Config
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
	backoff time.Duration

	mu     sync.Mutex
	client *http.Client
}

func NewRedditClient(opts RedditOptions, logger *slog.Logger) (*RedditClient, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrMissingRedditCredentials
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = REDDIT_API_URL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = REDDIT_AUTH_URL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}

	oauthConf := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &RedditClient{
		config:  oauthConf,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		logger:  logger,
		backoff: INITIAL_BACKOFF,
		client:  oauthConf.Client(context.Background()),
	}, nil
}

func (rc *RedditClient) httpClient() *http.Client {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.client
}

func (rc *RedditClient) refreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.client = rc.config.Client(context.Background())
}

// FetchNewPosts returns the newest posts of a subreddit.
func (rc *RedditClient) FetchNewPosts(ctx context.Context, subreddit string, limit int) (*models.RedditAPIResponse, error) {
	if limit <= 0 || limit > REDDIT_MAX_PAGE {
		limit = REDDIT_MAX_PAGE
	}
	parsedURL, err := url.Parse(fmt.Sprintf("%s/r/%s/new", rc.baseURL, url.PathEscape(subreddit)))
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] failed to parse URL: %w", err)
	}
	query := parsedURL.Query()
	query.Set("limit", strconv.Itoa(limit))
	query.Set("raw_json", "1")
	parsedURL.RawQuery = query.Encode()

	backoff := rc.backoff
	refreshed := false
	var lastErr error

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		if err := rc.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("[RedditClient] rate limiter: %w", err)
		}

		resp, status, err := rc.fetch(ctx, parsedURL.String())
		switch {
		case err == nil:
			return resp, nil
		case status == http.StatusUnauthorized && !refreshed:
			rc.logger.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
			rc.refreshClient()
			refreshed = true
			continue
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError || status == 0:
			lastErr = err
		default:
			return nil, err
		}

		if attempt == MAX_RETRIES || ctx.Err() != nil {
			break
		}
		rc.logger.Warn("[RedditClient] Retrying request",
			slog.String("subreddit", subreddit),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
	return nil, fmt.Errorf("[RedditClient] max retries reached: %w", lastErr)
}

func (rc *RedditClient) fetch(ctx context.Context, reqURL string) (*models.RedditAPIResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	res, err := rc.httpClient().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("[RedditClient] request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, res.StatusCode, fmt.Errorf("[RedditClient] unexpected status %d", res.StatusCode)
	}

	var listing models.RedditAPIResponse
	if err := json.NewDecoder(res.Body).Decode(&listing); err != nil {
		return nil, res.StatusCode, fmt.Errorf("[RedditClient] failed to decode listing: %w", err)
	}
	return &listing, res.StatusCode, nil
}
