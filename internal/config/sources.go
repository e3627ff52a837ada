package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSource is a single RSS feed the aggregator pulls from
type FeedSource struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// sourcesFile is the on-disk layout of FEED_SOURCES_FILE
type sourcesFile struct {
	Sources []FeedSource `yaml:"sources"`
}

// DefaultSources returns the built-in feed list
func DefaultSources() []FeedSource {
	return []FeedSource{
		{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/rss.xml", Enabled: true},
		{Name: "CNN", URL: "https://rss.cnn.com/rss/edition.rss", Enabled: true},
		{Name: "Reuters", URL: "https://feeds.reuters.com/reuters/topNews", Enabled: true},
	}
}

// LoadSources reads feed sources from a YAML file.
// An empty path returns DefaultSources.
func LoadSources(path string) ([]FeedSource, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed sources file: %w", err)
	}

	return ParseSources(data)
}

// ParseSources decodes a YAML feed source document
func ParseSources(data []byte) ([]FeedSource, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feed sources: %w", err)
	}

	for i, s := range file.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("feed source %d (%q) has no url", i, s.Name)
		}
		if s.Name == "" {
			file.Sources[i].Name = s.URL
		}
	}

	return file.Sources, nil
}
