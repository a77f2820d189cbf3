package elasticsearch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildSearchBodyDefaults(t *testing.T) {
	body := buildSearchBody(SearchParams{From: -3})

	require.Equal(t, 0, body["from"])
	require.Equal(t, defaultSize, body["size"])
	query := body["query"].(map[string]any)["bool"].(map[string]any)
	require.Equal(t, []map[string]any{{"match_all": map[string]any{}}}, query["must"])
	require.NotContains(t, query, "filter")
	require.Equal(t, []map[string]any{{timeField: map[string]any{"order": "desc"}}}, body["sort"])
	require.Contains(t, body["aggs"], "source")
	require.Contains(t, body["aggs"], "rank")
}

func TestBuildSearchBodyFilters(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.FixedZone("JST", 9*3600))
	body := buildSearchBody(SearchParams{
		Query:    "rust",
		Keywords: []string{"async"},
		Source:   "reddit",
		Rank:     "S",
		Size:     1000,
		Start:    &start,
	})

	require.Equal(t, maxSize, body["size"])
	query := body["query"].(map[string]any)["bool"].(map[string]any)
	require.Len(t, query["must"], 1)

	filters := query["filter"].([]map[string]any)
	require.Len(t, filters, 4)
	require.Equal(t, map[string]any{"term": map[string]any{"source": "reddit"}}, filters[1])
	require.Equal(t, map[string]any{"term": map[string]any{"rank": "S"}}, filters[2])
	require.Equal(t,
		map[string]any{"range": map[string]any{timeField: map[string]any{"gte": "2026-09-30T15:00:00Z"}}},
		filters[3])
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw, field, order string
	}{
		{"", timeField, "desc"},
		{"score", "score", "desc"},
		{"score:asc", "score", "asc"},
		{"indexedAt:sideways", "indexedAt", "desc"},
		{"title.raw:asc", timeField, "asc"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			field, order := parseSort(tt.raw)
			require.Equal(t, tt.field, field)
			require.Equal(t, tt.order, order)
		})
	}
}

const searchResponse = `{
  "hits": {
    "total": {"value": 2},
    "hits": [
      {"_source": {"id": "a1b2c3d4", "title": "Go 1.26", "url": "https://go.dev/blog/go1.26", "source": "hatena", "rank": "S", "keywords": ["go"], "indexedAt": "2026-10-19T07:30:00Z"}},
      {"_source": {"id": "e5f6a7b8", "title": "Generics", "url": "https://example.com/generics", "source": "reddit", "rank": "", "keywords": [], "indexedAt": "2026-10-19T07:30:00Z"}}
    ]
  },
  "aggregations": {
    "source": {"buckets": [{"key": "hatena", "doc_count": 1}, {"key": "reddit", "doc_count": 1}]},
    "rank": {"buckets": [{"key": "S", "doc_count": 1}]}
  }
}`

func TestSearchArticles(t *testing.T) {
	var (
		gotPath string
		gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, searchResponse)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "articles", nil)
	require.NoError(t, err)

	res, err := c.SearchArticles(context.Background(), SearchParams{Query: "go"})
	require.NoError(t, err)

	require.Equal(t, "/articles/_search", gotPath)
	require.Contains(t, gotBody, `"multi_match"`)
	require.Equal(t, int64(2), res.Total)
	require.Len(t, res.Items, 2)
	require.Equal(t, "Go 1.26", res.Items[0].Title)
	require.Equal(t, map[string]int64{"hatena": 1, "reddit": 1}, res.Facets["source"])
	require.Equal(t, map[string]int64{"S": 1}, res.Facets["rank"])
}
