package processing

import (
	"context"
	"strings"

	"github.com/spacesedan/narratives/internal/models"
)

type articleFetcher interface {
	GetArticles(ctx context.Context) (*models.NewsAPIResponse, error)
}

type NewsCollector struct {
	client articleFetcher
}

func NewNewsCollector(client articleFetcher) *NewsCollector {
	return &NewsCollector{client: client}
}

func (c *NewsCollector) Name() string { return "news" }

func (c *NewsCollector) Collect(ctx context.Context) ([]models.Item, error) {
	resp, err := c.client.GetArticles(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		items = append(items, models.Item{
			Source:     models.SourceNews,
			SourceName: a.Source.Name,
			Title:      a.Title,
			Text:       strings.TrimSpace(a.Description + " " + a.Content),
			URL:        a.URL,
			CreatedAt:  a.PublishedAt,
		})
	}
	return items, nil
}
