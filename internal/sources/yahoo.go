package sources

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/pipeline"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/processing"
)

// YahooFeed is one configured aggregator feed.
type YahooFeed struct {
	URL   string `yaml:"url"`
	Label string `yaml:"label"`
	Group string `yaml:"group"`
}

// YahooResult is the outcome of one Yahoo.Fetch.
type YahooResult struct {
	Items []pipeline.YahooItem
	// Fetched counts items before the cross-feed URL dedup.
	Fetched int
	Errors  []FeedError
}

// Yahoo reads the aggregator's topic feeds.
type Yahoo struct {
	client *Client
	feeds  map[string]YahooFeed
}

// NewYahoo returns a fetcher for the given feed table.
func NewYahoo(c *Client, feeds map[string]YahooFeed) *Yahoo {
	return &Yahoo{client: c, feeds: feeds}
}

// Fetch collects the feeds named by keys in order and drops repeated URLs,
// keeping the first. Items with an empty URL are dropped too.
func (y *Yahoo) Fetch(ctx context.Context, keys []string) YahooResult {
	var res YahooResult
	seen := make(map[string]struct{})

	for _, key := range keys {
		feed, ok := y.feeds[key]
		if !ok {
			res.Errors = append(res.Errors, FeedError{Key: key, Err: fmt.Errorf("unknown feed")})
			continue
		}
		items, err := y.fetchFeed(ctx, key, feed)
		if err != nil {
			res.Errors = append(res.Errors, FeedError{Key: key, Err: err})
			if ctx.Err() != nil {
				return res
			}
			continue
		}
		res.Fetched += len(items)
		for _, it := range items {
			if it.URL == "" {
				continue
			}
			if _, dup := seen[it.URL]; dup {
				continue
			}
			seen[it.URL] = struct{}{}
			res.Items = append(res.Items, it)
		}
	}
	return res
}

func (y *Yahoo) fetchFeed(ctx context.Context, key string, feed YahooFeed) ([]pipeline.YahooItem, error) {
	body, err := y.client.Get(ctx, feed.URL)
	if err != nil {
		return nil, err
	}
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]pipeline.YahooItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		items = append(items, pipeline.YahooItem{
			Title:       entry.Title,
			URL:         entry.Link,
			Date:        entry.Published,
			Source:      processing.ExtractOutlet(entry.Title),
			Feed:        key,
			FeedLabel:   feed.Label,
			Description: processing.PlainText(entry.Description),
		})
	}
	return items, nil
}
