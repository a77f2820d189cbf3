package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

const (
	defaultSize = 20
	maxSize     = 200
)

// sortable lists the fields a search may be ordered by.
var sortable = map[string]bool{
	timeField:   true,
	"indexedAt": true,
	"score":     true,
}

// facetFields are aggregated on every search so callers can show filter counts.
var facetFields = []string{"source", "rank"}

// SearchParams narrow the search endpoint query.
type SearchParams struct {
	Query    string
	Keywords []string
	Source   string
	Rank     string
	From     int
	Size     int
	// Sort is "field" or "field:asc|desc"; unknown fields fall back to newest first.
	Sort  string
	Start *time.Time
	End   *time.Time
}

// SearchResult bundles hits, the total count and per-facet bucket counts.
type SearchResult struct {
	Total  int64                       `json:"total"`
	Items  []models.ArticleDocument    `json:"items"`
	Facets map[string]map[string]int64 `json:"facets"`
}

// SearchArticles executes a bool query with optional filters.
func (c *Client) SearchArticles(ctx context.Context, params SearchParams) (*SearchResult, error) {
	payload, err := json.Marshal(buildSearchBody(params))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.ArticleDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
		Aggregations map[string]struct {
			Buckets []struct {
				Key      string `json:"key"`
				DocCount int64  `json:"doc_count"`
			} `json:"buckets"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{
		Total:  parsed.Hits.Total.Value,
		Items:  make([]models.ArticleDocument, 0, len(parsed.Hits.Hits)),
		Facets: make(map[string]map[string]int64, len(facetFields)),
	}
	for _, hit := range parsed.Hits.Hits {
		out.Items = append(out.Items, hit.Source)
	}
	for _, field := range facetFields {
		counts := map[string]int64{}
		for _, b := range parsed.Aggregations[field].Buckets {
			counts[b.Key] = b.DocCount
		}
		out.Facets[field] = counts
	}
	return out, nil
}

// buildSearchBody translates params into a search request body.
func buildSearchBody(params SearchParams) map[string]any {
	size := params.Size
	if size <= 0 {
		size = defaultSize
	}
	size = min(size, maxSize)
	from := max(params.From, 0)

	var must, filters []map[string]any

	if params.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Query,
				"fields": []string{"title^2", "titleJa^2", "summary", "description", "tags"},
			},
		})
	}
	if len(params.Keywords) > 0 {
		filters = append(filters, map[string]any{"terms": map[string]any{"keywords": params.Keywords}})
	}
	if params.Source != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"source": params.Source}})
	}
	if params.Rank != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"rank": params.Rank}})
	}
	if params.Start != nil || params.End != nil {
		bounds := map[string]any{}
		if params.Start != nil {
			bounds["gte"] = params.Start.UTC().Format(time.RFC3339)
		}
		if params.End != nil {
			bounds["lte"] = params.End.UTC().Format(time.RFC3339)
		}
		filters = append(filters, map[string]any{"range": map[string]any{timeField: bounds}})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []map[string]any{{"match_all": map[string]any{}}}
	}

	aggs := make(map[string]any, len(facetFields))
	for _, field := range facetFields {
		aggs[field] = map[string]any{"terms": map[string]any{"field": field}}
	}

	field, order := parseSort(params.Sort)
	return map[string]any{
		"from":             from,
		"size":             size,
		"track_total_hits": true,
		"query":            map[string]any{"bool": boolQuery},
		"aggs":             aggs,
		"sort":             []map[string]any{{field: map[string]any{"order": order}}},
	}
}

func parseSort(raw string) (field, order string) {
	field, order, _ = strings.Cut(strings.TrimSpace(raw), ":")
	if !sortable[field] {
		field = timeField
	}
	if order != "asc" {
		order = "desc"
	}
	return field, order
}
