package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

const (
	NEWS_API_BASE_URL    = "https://newsapi.org/v2"
	NEWS_API_MAX_SOURCES = 20
	NEWS_API_MAX_PAGE    = 100
)

var ErrMissingAPIKey = errors.New("[NewsAPIClient] API key is missing")

type NewsAPIOptions struct {
	APIKey   string
	Sources  []string
	Country  string
	PageSize int
	BaseURL  string
}

type NewsAPIClient struct {
	Client  *http.Client
	opts    NewsAPIOptions
	logger  *slog.Logger
	backoff time.Duration
}

func NewNewsAPIClient(opts NewsAPIOptions, logger *slog.Logger) *NewsAPIClient {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = NEWS_API_BASE_URL
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.PageSize <= 0 || opts.PageSize > NEWS_API_MAX_PAGE {
		opts.PageSize = NEWS_API_MAX_PAGE
	}
	return &NewsAPIClient{
		Client:  &http.Client{Timeout: REQUEST_TIMEOUT},
		opts:    opts,
		logger:  logger,
		backoff: INITIAL_BACKOFF,
	}
}

// requestURL builds /everything when sources are configured and
// /top-headlines otherwise, looking back one day.
func (n *NewsAPIClient) requestURL(now time.Time) string {
	params := url.Values{}
	params.Set("apiKey", n.opts.APIKey)
	params.Set("from", now.AddDate(0, 0, -1).Format("2006-01-02"))
	params.Set("sortBy", "popularity")
	params.Set("language", "en")
	params.Set("pageSize", strconv.Itoa(n.opts.PageSize))

	endpoint := "/top-headlines"
	if len(n.opts.Sources) > 0 {
		sources := n.opts.Sources
		if len(sources) > NEWS_API_MAX_SOURCES {
			sources = sources[:NEWS_API_MAX_SOURCES]
		}
		params.Set("sources", strings.Join(sources, ","))
		endpoint = "/everything"
	} else {
		params.Set("country", n.opts.Country)
	}
	return n.opts.BaseURL + endpoint + "?" + params.Encode()
}

func (n *NewsAPIClient) GetArticles(ctx context.Context) (*models.NewsAPIResponse, error) {
	if n.opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	reqURL := n.requestURL(time.Now())

	var lastErr error
	backoff := n.backoff

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		n.logger.Debug("[NewsAPIClient] Fetching articles", slog.Int("attempt", attempt))

		response, retry, err := n.fetch(ctx, reqURL)
		if err == nil {
			n.logger.Info("[NewsAPIClient] Successfully fetched articles",
				slog.Int("articles", len(response.Articles)))
			return response, nil
		}
		if !retry {
			return nil, err
		}

		lastErr = err
		if attempt == MAX_RETRIES {
			break
		}
		n.logger.Warn("[NewsAPIClient] Request failed, retrying...",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
			slog.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}

	n.logger.Error("[NewsAPIClient] Failed after max retries")
	return nil, fmt.Errorf("[NewsAPIClient] failed after max retries: %w", lastErr)
}

// fetch performs one request. retry reports whether the failure is transient.
func (n *NewsAPIClient) fetch(ctx context.Context, reqURL string) (*models.NewsAPIResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("[NewsAPIClient] failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", USER_AGENT)

	res, err := n.Client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("[NewsAPIClient] request failed: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		var response models.NewsAPIResponse
		if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
			return nil, false, fmt.Errorf("[NewsAPIClient] failed to parse JSON response: %w", err)
		}
		if response.Status == "error" {
			return nil, false, fmt.Errorf("[NewsAPIClient] api error %s: %s", response.Code, response.Message)
		}
		return &response, false, nil
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, true, fmt.Errorf("[NewsAPIClient] transient status %d", res.StatusCode)
	case res.StatusCode == http.StatusUnauthorized:
		return nil, false, errors.New("[NewsAPIClient] invalid API key, check credentials")
	case res.StatusCode == http.StatusForbidden:
		return nil, false, errors.New("[NewsAPIClient] API key lacks required permissions")
	case res.StatusCode == http.StatusBadRequest:
		return nil, false, errors.New("[NewsAPIClient] bad request: check query parameters")
	default:
		return nil, false, fmt.Errorf("[NewsAPIClient] unexpected status code %d", res.StatusCode)
	}
}
