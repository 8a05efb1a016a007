package processing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

const REDDIT_BASE_URL = "https://www.reddit.com"

type postFetcher interface {
	FetchNewPosts(ctx context.Context, subreddit string, limit int) (*models.RedditAPIResponse, error)
}

type RedditCollector struct {
	client     postFetcher
	subreddits []string
	limit      int
	logger     *slog.Logger
}

func NewRedditCollector(client postFetcher, subreddits []string, limit int, logger *slog.Logger) *RedditCollector {
	if logger == nil {
		logger = logging.Discard()
	}
	if len(subreddits) == 0 {
		subreddits = SubredditsFor()
	}
	return &RedditCollector{client: client, subreddits: subreddits, limit: limit, logger: logger}
}

func (c *RedditCollector) Name() string { return "social" }

func (c *RedditCollector) Collect(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	var errs []error

	for _, sub := range c.subreddits {
		listing, err := c.client.FetchNewPosts(ctx, sub, c.limit)
		if err != nil {
			c.logger.Warn("[RedditCollector] Failed to fetch Reddit posts",
				slog.String("subreddit", sub),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			if post.Title == "" && post.Selftext == "" {
				continue
			}
			items = append(items, models.Item{
				Source:     models.SourceSocial,
				SourceName: "r/" + post.Subreddit,
				Title:      post.Title,
				Text:       post.Selftext,
				URL:        REDDIT_BASE_URL + post.Permalink,
				CreatedAt:  time.Unix(int64(post.CreatedUTC), 0).UTC().Format(time.RFC3339),
			})
		}
	}

	if len(c.subreddits) > 0 && len(errs) == len(c.subreddits) {
		return nil, errors.Join(errs...)
	}
	return items, nil
}
