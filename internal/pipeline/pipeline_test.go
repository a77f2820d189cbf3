package pipeline_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/pipeline"
)

func samplePayloads() pipeline.Payloads {
	return pipeline.Payloads{
		Hatena: []pipeline.HatenaItem{
			{Title: "Shared", URL: "https://shared.example/1", Bookmarks: 100, Tags: []string{"go"}, Category: "it"},
			{Title: "Hatena only", URL: "https://h.example/2", Bookmarks: 7},
			{Title: "Hatena dup", URL: "https://h.example/2", Bookmarks: 9},
		},
		Yahoo: []pipeline.YahooItem{
			{Title: "News", URL: "https://y.example/1", Source: "日経新聞", Feed: "it"},
			{Title: "No outlet", URL: "https://y.example/2"},
			{Title: "Shared again", URL: "https://shared.example/1", Source: "x"},
		},
		Reddit: []pipeline.RedditItem{
			{Title: "Shared forum", URL: "https://shared.example/1", Score: 500, NumComments: 3, Subreddit: "r/golang"},
			{Title: "Forum", URL: "https://r.example/1", Score: 12, NumComments: 4, Subreddit: "r/golang", Permalink: "https://www.reddit.com/r/golang/comments/x"},
			{Title: "Excluded", URL: "https://bad.example/1", Score: 1},
		},
	}
}

func TestNormalizeBookmarkScenario(t *testing.T) {
	var item pipeline.HatenaItem
	require.NoError(t, json.Unmarshal([]byte(`{"title": "X", "url": "https://a.example/1", "bookmarks": 42}`), &item))

	out, err := pipeline.Normalize(pipeline.Payloads{Hatena: []pipeline.HatenaItem{item}}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)

	a := out[0]
	require.Equal(t, 42, a.Score)
	require.Equal(t, "42 users", a.ScoreLabel)
	require.Equal(t, models.SourceHatena, a.Source)
	require.Equal(t, identity.ID("https://a.example/1"), a.ID)
	require.Equal(t, models.RankNone, a.Rank)
	require.False(t, a.Checked)
	require.Nil(t, a.Subreddit)
}

func TestNormalizeOrderAndMappings(t *testing.T) {
	out, stats, err := pipeline.Run(samplePayloads(), pipeline.NewExclusionSet("https://bad.example/1"))
	require.NoError(t, err)

	var urls []string
	for _, a := range out {
		urls = append(urls, a.URL)
	}
	require.Equal(t, []string{
		"https://shared.example/1",
		"https://h.example/2",
		"https://y.example/1",
		"https://y.example/2",
		"https://r.example/1",
	}, urls)

	require.Equal(t, 7, out[1].Score, "first occurrence wins")
	require.Equal(t, "日経新聞", out[2].ScoreLabel)
	require.Equal(t, "it", out[2].Feed)
	require.Equal(t, pipeline.DefaultYahooLabel, out[3].ScoreLabel)
	require.Equal(t, 0, out[3].Score)

	reddit := out[4]
	require.Equal(t, "12pt 4comments", reddit.ScoreLabel)
	require.Equal(t, "r/golang", models.Deref(reddit.Subreddit))
	require.Equal(t, "https://www.reddit.com/r/golang/comments/x", reddit.Permalink)

	require.Equal(t, pipeline.Stats{
		Hatena: pipeline.SourceStats{Kept: 2, Duplicate: 1},
		Yahoo:  pipeline.SourceStats{Kept: 2, Duplicate: 1},
		Reddit: pipeline.SourceStats{Kept: 1, Duplicate: 1, Excluded: 1},
	}, stats)
	require.Equal(t, 5, stats.Kept())
}

func TestNormalizeIdempotent(t *testing.T) {
	excluded := pipeline.NewExclusionSet("https://bad.example/1")

	first, err := pipeline.Normalize(samplePayloads(), excluded)
	require.NoError(t, err)
	second, err := pipeline.Normalize(samplePayloads(), excluded)
	require.NoError(t, err)

	require.Equal(t, first, second)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestNormalizeCrossSourcePrecedence(t *testing.T) {
	out, err := pipeline.Normalize(samplePayloads(), nil)
	require.NoError(t, err)

	require.Equal(t, "https://shared.example/1", out[0].URL)
	require.Equal(t, models.SourceHatena, out[0].Source)
	require.Nil(t, out[0].Subreddit)
	require.Equal(t, 100, out[0].Score)
	require.Equal(t, []string{"go"}, out[0].Tags)

	count := 0
	for _, a := range out {
		if a.URL == "https://shared.example/1" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestNormalizeExclusionIsAbsolute(t *testing.T) {
	p := samplePayloads()
	excluded := pipeline.NewExclusionSet("https://shared.example/1", "https://h.example/2", "https://r.example/1")

	out, err := pipeline.Normalize(p, excluded)
	require.NoError(t, err)

	for _, a := range out {
		require.False(t, excluded.Contains(a.URL), "excluded url %s leaked", a.URL)
	}
	require.Len(t, out, 3)
}

func TestNormalizeRejectsInvalidUTF8(t *testing.T) {
	p := pipeline.Payloads{
		Yahoo: []pipeline.YahooItem{
			{Title: "ok", URL: "https://y.example/ok"},
			{Title: "bad", URL: "https://y.example/\xff"},
		},
	}

	_, err := pipeline.Normalize(p, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, identity.ErrInvalidUTF8))
	require.Contains(t, err.Error(), fmt.Sprintf("%s item 1", models.SourceYahoo))
}

func TestNormalizeEmpty(t *testing.T) {
	out, err := pipeline.Normalize(pipeline.Payloads{}, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}
