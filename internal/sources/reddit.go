package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/comments"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/pipeline"
)

const (
	// DefaultRedditBaseURL serves the JSON listings without a login wall.
	DefaultRedditBaseURL = "https://old.reddit.com"

	kindPost     = "t3"
	commentLimit = 200
)

// ErrNotRedditPost is returned by Thread for URLs without /r/<sub>/comments/<id>.
var ErrNotRedditPost = errors.New("not a reddit post url")

var postPathRe = regexp.MustCompile(`(?i)/r/([^/]+)/comments/([a-z0-9]+)`)

// RedditResult is the outcome of one Reddit.Hot.
type RedditResult struct {
	Items  []pipeline.RedditItem
	Errors []FeedError
}

// Reddit reads board listings and comment threads.
type Reddit struct {
	client  *Client
	baseURL string
}

// NewReddit returns a fetcher rooted at baseURL, or the public site when empty.
func NewReddit(c *Client, baseURL string) *Reddit {
	if baseURL == "" {
		baseURL = DefaultRedditBaseURL
	}
	return &Reddit{client: c, baseURL: strings.TrimRight(baseURL, "/")}
}

type redditPost struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Author      string  `json:"author"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Hot collects up to limit hot posts per board, skipping pinned posts.
func (r *Reddit) Hot(ctx context.Context, subreddits []string, limit int) RedditResult {
	var res RedditResult
	for _, sub := range subreddits {
		items, err := r.hot(ctx, sub, limit)
		if err != nil {
			res.Errors = append(res.Errors, FeedError{Key: "r/" + sub, Err: err})
			if ctx.Err() != nil {
				return res
			}
			continue
		}
		res.Items = append(res.Items, items...)
	}
	return res
}

func (r *Reddit) hot(ctx context.Context, sub string, limit int) ([]pipeline.RedditItem, error) {
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d&t=day", r.baseURL, url.PathEscape(sub), limit)
	body, err := r.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	var listing comments.Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	var items []pipeline.RedditItem
	for _, child := range listing.Data.Children {
		if child.Kind != kindPost {
			continue
		}
		var p redditPost
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		if p.Stickied {
			continue
		}
		author := p.Author
		if author == "" {
			author = "[deleted]"
		}
		items = append(items, pipeline.RedditItem{
			Title:       p.Title,
			URL:         p.URL,
			Permalink:   comments.AbsolutePermalink(p.Permalink),
			Score:       p.Score,
			NumComments: p.NumComments,
			Subreddit:   "r/" + sub,
			Author:      author,
			IsSelf:      p.IsSelf,
			CreatedUTC:  p.CreatedUTC,
		})
	}
	return items, nil
}

// PostPath extracts the board and post id from a post URL.
func PostPath(postURL string) (sub, id string, err error) {
	m := postPathRe.FindStringSubmatch(postURL)
	if m == nil {
		return "", "", fmt.Errorf("%w: %s", ErrNotRedditPost, postURL)
	}
	return m[1], m[2], nil
}

// Thread fetches a post and its flattened comment tree.
func (r *Reddit) Thread(ctx context.Context, postURL string) (*comments.Thread, error) {
	sub, id, err := PostPath(postURL)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&sort=best", r.baseURL, sub, id, commentLimit)
	body, err := r.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	return comments.ParseThread(body)
}
