// Package sources fetches the raw collections handed to the pipeline.
//
// Requests go through a Client so each upstream sees a polite user agent and
// at most one request per interval.
package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
)

// UserAgent is sent with every upstream request.
const UserAgent = "knowledge-hub/0.1"

const maxBodyBytes = 16 << 20

// Client is a rate-limited HTTP getter.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient returns a Client that waits interval between requests.
// A non-positive interval disables the limit.
func NewClient(timeout, interval time.Duration, log *slog.Logger) *Client {
	log = logger.OrDiscard(log)
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Get fetches url and returns the body of a 200 response.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	c.log.Debug("upstream response",
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

// FeedError records a feed that could not be collected. The rest of the run continues.
type FeedError struct {
	Key string `json:"key"`
	Err error  `json:"-"`
}

func (e FeedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e FeedError) Unwrap() error {
	return e.Err
}
