package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsAPIRequestURL(t *testing.T) {
	now := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	headlines := NewNewsAPIClient(NewsAPIOptions{APIKey: "k"}, nil).requestURL(now)
	assert.Contains(t, headlines, "/top-headlines?")
	assert.Contains(t, headlines, "country=us")
	assert.Contains(t, headlines, "from=2025-02-09")

	everything := NewNewsAPIClient(NewsAPIOptions{APIKey: "k", Sources: []string{"bbc-news", "reuters"}}, nil).requestURL(now)
	assert.Contains(t, everything, "/everything?")
	assert.Contains(t, everything, "sources=bbc-news%2Creuters")
	assert.NotContains(t, everything, "country=")
}

func TestNewsAPIMissingKey(t *testing.T) {
	_, err := NewNewsAPIClient(NewsAPIOptions{}, nil).GetArticles(context.Background())
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewsAPIRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[{"source":{"name":"Reuters"},"title":"Headline","url":"https://r/1","publishedAt":"2025-02-10T08:00:00Z"}]}`))
	}))
	defer srv.Close()

	c := NewNewsAPIClient(NewsAPIOptions{APIKey: "k", BaseURL: srv.URL}, nil)
	c.backoff = time.Millisecond

	resp, err := c.GetArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "Reuters", resp.Articles[0].Source.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewsAPIDoesNotRetryUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewNewsAPIClient(NewsAPIOptions{APIKey: "bad", BaseURL: srv.URL}, nil)
	c.backoff = time.Millisecond

	_, err := c.GetArticles(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
