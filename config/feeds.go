package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type feedsFile struct {
	Feeds []Feed `yaml:"rss_feeds"`
}

// LoadFeeds reads the RSS feed list. A missing file yields no feeds.
func LoadFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("[Config] read feeds file: %w", err)
	}

	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("[Config] parse feeds file %s: %w", path, err)
	}

	feeds := f.Feeds[:0]
	for _, feed := range f.Feeds {
		if feed.URL == "" {
			continue
		}
		if feed.Name == "" {
			feed.Name = feed.URL
		}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}
