package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"
	"github.com/spacesedan/narratives/internal/logging"
)

type RSSClient struct {
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewRSSClient(logger *slog.Logger) *RSSClient {
	if logger == nil {
		logger = logging.Discard()
	}
	parser := gofeed.NewParser()
	parser.UserAgent = USER_AGENT
	parser.Client = &http.Client{Timeout: REQUEST_TIMEOUT}
	return &RSSClient{parser: parser, logger: logger}
}

func (c *RSSClient) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("[RSSClient] failed to fetch %s: %w", feedURL, err)
	}
	c.logger.Debug("[RSSClient] Fetched feed",
		slog.String("url", feedURL),
		slog.Int("entries", len(feed.Items)))
	return feed, nil
}
