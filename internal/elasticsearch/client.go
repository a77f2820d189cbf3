// Package elasticsearch indexes collected articles for full-text search.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/logger"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// timeField is the document timestamp used for ranges, sorting and retention.
const timeField = "fetchedAt"

// Client wraps go-elasticsearch for the article index.
type Client struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

// New instantiates the Elasticsearch client.
func New(addr, index string, log *slog.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es, index: index, log: logger.OrDiscard(log).With("component", "elasticsearch")}, nil
}

// responseError turns an error response into a Go error carrying its body.
func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s failed: %s: %s", op, res.Status(), strings.TrimSpace(string(body)))
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Health reports an error unless the cluster answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return responseError("cluster health", res)
	}
	return nil
}

var textWithRaw = map[string]any{
	"type":   "text",
	"fields": map[string]any{"raw": map[string]any{"type": "keyword"}},
}

var indexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":         map[string]any{"type": "keyword"},
			"url":        map[string]any{"type": "keyword"},
			"source":     map[string]any{"type": "keyword"},
			"rank":       map[string]any{"type": "keyword"},
			"category":   map[string]any{"type": "keyword"},
			"subreddit":  map[string]any{"type": "keyword"},
			"feed":       map[string]any{"type": "keyword"},
			"runId":      map[string]any{"type": "keyword"},
			"keywords":   map[string]any{"type": "keyword"},
			"links":      map[string]any{"type": "keyword"},
			"tags":       textWithRaw,
			"checked":    map[string]any{"type": "boolean"},
			"score":      map[string]any{"type": "integer"},
			"fetchedAt":  map[string]any{"type": "date"},
			"indexedAt":  map[string]any{"type": "date"},
			"title":      map[string]any{"type": "text"},
			"titleJa":    map[string]any{"type": "text"},
			"summary":    map[string]any{"type": "text"},
			"scoreLabel": map[string]any{"type": "keyword", "index": false},
			"permalink":  map[string]any{"type": "keyword", "index": false},
		},
	},
}

// EnsureIndex creates the index with keyword mappings for the filter fields
// when it does not exist yet.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	payload, err := json.Marshal(indexMapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		err := responseError("create index", res)
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return err
	}
	c.log.Info("index created", slog.String("index", c.index))
	return nil
}

// IndexArticle writes doc under its article ID, replacing an earlier version.
func (c *Client) IndexArticle(ctx context.Context, doc models.ArticleDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index article %s: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index article "+doc.ID, res)
	}
	return nil
}

// DeleteOlderThan removes articles fetched more than maxAge ago using batched
// delete-by-query, looping until a batch deletes fewer than batchSize.
func (c *Client) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	payload, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				timeField: map[string]any{
					"lte": time.Now().Add(-maxAge).UTC().Format(time.RFC3339),
				},
			},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal delete body: %w", err)
	}

	var total int64
	for {
		deleted, err := c.deleteBatch(ctx, payload, batchSize)
		total += deleted
		if err != nil {
			return total, err
		}
		if deleted < int64(batchSize) {
			return total, nil
		}
	}
}

func (c *Client) deleteBatch(ctx context.Context, payload []byte, batchSize int) (int64, error) {
	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		bytes.NewReader(payload),
		c.es.DeleteByQuery.WithContext(ctx),
		c.es.DeleteByQuery.WithWaitForCompletion(true),
		c.es.DeleteByQuery.WithConflicts("proceed"),
		c.es.DeleteByQuery.WithScrollSize(batchSize),
		c.es.DeleteByQuery.WithMaxDocs(batchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, responseError("delete by query", res)
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode delete response: %w", err)
	}
	return parsed.Deleted, nil
}
