package config

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/sources"
)

// Sources selects what the collector fetches.
type Sources struct {
	Hatena HatenaSources `yaml:"hatena"`
	Yahoo  YahooSources  `yaml:"yahoo"`
	Reddit RedditSources `yaml:"reddit"`
}

// HatenaSources lists the hot-entry categories to read.
type HatenaSources struct {
	Categories []string `yaml:"categories"`
}

// YahooSources is the feed table and the keys to read; no keys means all.
type YahooSources struct {
	Feeds map[string]sources.YahooFeed `yaml:"feeds"`
	Keys  []string                     `yaml:"keys"`
}

// RedditSources lists the boards to read and how many posts per board.
type RedditSources struct {
	Subreddits []string `yaml:"subreddits"`
	Limit      int      `yaml:"limit"`
}

// DefaultSources is used when no sources file is configured.
func DefaultSources() Sources {
	return Sources{
		Hatena: HatenaSources{Categories: []string{"it", "knowledge", "economics"}},
		Yahoo: YahooSources{Feeds: map[string]sources.YahooFeed{
			"it":       {URL: "https://news.yahoo.co.jp/rss/topics/it.xml", Label: "IT", Group: "categories"},
			"business": {URL: "https://news.yahoo.co.jp/rss/topics/business.xml", Label: "経済", Group: "categories"},
			"science":  {URL: "https://news.yahoo.co.jp/rss/topics/science.xml", Label: "科学", Group: "categories"},
		}},
		Reddit: RedditSources{
			Subreddits: []string{"programming", "webdev", "nextjs", "vuejs", "LocalLLaMA", "ClaudeAI"},
			Limit:      10,
		},
	}
}

// YahooKeys returns the configured keys, or every feed key sorted.
func (s Sources) YahooKeys() []string {
	if len(s.Yahoo.Keys) > 0 {
		return s.Yahoo.Keys
	}
	keys := make([]string, 0, len(s.Yahoo.Feeds))
	for k := range s.Yahoo.Feeds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks that every selected Yahoo key has a feed URL.
func (s Sources) Validate() error {
	for _, k := range s.Yahoo.Keys {
		f, ok := s.Yahoo.Feeds[k]
		if !ok {
			return fmt.Errorf("yahoo feed %q is not defined", k)
		}
		if f.URL == "" {
			return fmt.Errorf("yahoo feed %q has no url", k)
		}
	}
	if s.Reddit.Limit < 0 {
		return fmt.Errorf("reddit limit cannot be negative")
	}
	return nil
}

// LoadSourcesFile reads a sources YAML file.
func LoadSourcesFile(path string) (Sources, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sources{}, fmt.Errorf("open sources config: %w", err)
	}
	defer f.Close()
	return ReadSources(f)
}

// ReadSources decodes a sources document. Sections left out keep their defaults;
// unknown keys are an error.
func ReadSources(r io.Reader) (Sources, error) {
	s := DefaultSources()
	var file Sources
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return Sources{}, fmt.Errorf("decode sources config: %w", err)
	}

	if len(file.Hatena.Categories) > 0 {
		s.Hatena = file.Hatena
	}
	if len(file.Yahoo.Feeds) > 0 {
		s.Yahoo.Feeds = file.Yahoo.Feeds
	}
	if len(file.Yahoo.Keys) > 0 {
		s.Yahoo.Keys = file.Yahoo.Keys
	}
	if len(file.Reddit.Subreddits) > 0 {
		s.Reddit.Subreddits = file.Reddit.Subreddits
	}
	if file.Reddit.Limit > 0 {
		s.Reddit.Limit = file.Reddit.Limit
	}
	return s, nil
}
