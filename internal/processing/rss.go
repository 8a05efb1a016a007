package processing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/spacesedan/narratives/config"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

const RSS_MAX_ENTRIES = 50

type feedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

type RSSCollector struct {
	client feedFetcher
	feeds  []config.Feed
	logger *slog.Logger
	now    func() time.Time
}

func NewRSSCollector(client feedFetcher, feeds []config.Feed, logger *slog.Logger) *RSSCollector {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RSSCollector{client: client, feeds: feeds, logger: logger, now: time.Now}
}

func (c *RSSCollector) Name() string { return "rss" }

// Collect reads the first entries of every feed. A broken feed is skipped;
// an error is returned only when every feed failed.
func (c *RSSCollector) Collect(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	var errs []error

	for _, f := range c.feeds {
		feed, err := c.client.FetchFeed(ctx, f.URL)
		if err != nil {
			c.logger.Warn("[RSSCollector] Error collecting feed",
				slog.String("feed", f.Name),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}

		entries := feed.Items
		if len(entries) > RSS_MAX_ENTRIES {
			entries = entries[:RSS_MAX_ENTRIES]
		}
		for _, entry := range entries {
			items = append(items, c.toItem(f.Name, entry))
		}
	}

	if len(c.feeds) > 0 && len(errs) == len(c.feeds) {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

func (c *RSSCollector) toItem(feedName string, entry *gofeed.Item) models.Item {
	text := entry.Description
	if text == "" {
		text = entry.Content
	}

	published := c.now()
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	return models.Item{
		Source:     models.SourceRSS,
		SourceName: feedName,
		Title:      strings.TrimSpace(entry.Title),
		Text:       text,
		URL:        entry.Link,
		CreatedAt:  published.UTC().Format(time.RFC3339),
	}
}
