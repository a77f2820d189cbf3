package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/pipeline"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/processing"
)

// DefaultHatenaBaseURL is the bookmarking site root.
const DefaultHatenaBaseURL = "https://b.hatena.ne.jp"

// HatenaCategories are the hot-entry categories the site publishes.
var HatenaCategories = []string{"it", "knowledge", "economics", "entertainment", "game"}

// HatenaResult is the outcome of one Hatena.Fetch.
type HatenaResult struct {
	Items  []pipeline.HatenaItem
	Errors []FeedError
}

// Hatena reads hot-entry RSS feeds and bookmark comments.
type Hatena struct {
	client  *Client
	baseURL string
}

// NewHatena returns a fetcher rooted at baseURL, or the public site when empty.
func NewHatena(c *Client, baseURL string) *Hatena {
	if baseURL == "" {
		baseURL = DefaultHatenaBaseURL
	}
	return &Hatena{client: c, baseURL: strings.TrimRight(baseURL, "/")}
}

// Fetch collects the hot entries of each category in order. Unknown
// categories and failed feeds are reported in Errors.
func (h *Hatena) Fetch(ctx context.Context, categories []string) HatenaResult {
	var res HatenaResult
	for _, cat := range categories {
		if !slices.Contains(HatenaCategories, cat) {
			res.Errors = append(res.Errors, FeedError{Key: cat, Err: fmt.Errorf("unknown category")})
			continue
		}
		items, err := h.fetchCategory(ctx, cat)
		if err != nil {
			res.Errors = append(res.Errors, FeedError{Key: cat, Err: err})
			if ctx.Err() != nil {
				return res
			}
			continue
		}
		res.Items = append(res.Items, items...)
	}
	return res
}

func (h *Hatena) fetchCategory(ctx context.Context, category string) ([]pipeline.HatenaItem, error) {
	body, err := h.client.Get(ctx, h.baseURL+"/hotentry/"+category+".rss")
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]pipeline.HatenaItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, pipeline.HatenaItem{
			Title:       entry.Title,
			URL:         entry.Link,
			Bookmarks:   bookmarkCount(entry),
			Date:        entry.Published,
			Tags:        entry.Categories,
			Category:    category,
			Description: processing.PlainText(entry.Description),
		})
	}
	return items, nil
}

func bookmarkCount(entry *gofeed.Item) int {
	ext, ok := entry.Extensions["hatena"]["bookmarkcount"]
	if !ok || len(ext) == 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(ext[0].Value))
	if err != nil {
		return 0
	}
	return n
}

// HatenaComments is the commented subset of an entry's bookmarks.
type HatenaComments struct {
	URL      string                   `json:"url"`
	Title    string                   `json:"title"`
	Count    int                      `json:"bookmarkCount"`
	Comments []models.BookmarkComment `json:"comments"`
}

type entryPayload struct {
	Title     string `json:"title"`
	Count     int    `json:"count"`
	Bookmarks []struct {
		User      string   `json:"user"`
		Comment   string   `json:"comment"`
		Timestamp string   `json:"timestamp"`
		Tags      []string `json:"tags"`
	} `json:"bookmarks"`
}

// Comments returns the bookmarks on articleURL that carry a comment. An entry
// with no bookmarks comes back as an empty body, which is not an error.
func (h *Hatena) Comments(ctx context.Context, articleURL string) (*HatenaComments, error) {
	body, err := h.client.Get(ctx, h.baseURL+"/entry/jsonlite/?url="+url.QueryEscape(articleURL))
	if err != nil {
		return nil, err
	}

	res := &HatenaComments{URL: articleURL, Comments: []models.BookmarkComment{}}
	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return res, nil
	}

	var p entryPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	res.Title = p.Title
	res.Count = p.Count
	for _, b := range p.Bookmarks {
		if strings.TrimSpace(b.Comment) == "" {
			continue
		}
		tags := b.Tags
		if tags == nil {
			tags = []string{}
		}
		res.Comments = append(res.Comments, models.BookmarkComment{
			User:      b.User,
			Comment:   b.Comment,
			Timestamp: b.Timestamp,
			Tags:      tags,
		})
	}
	return res, nil
}
