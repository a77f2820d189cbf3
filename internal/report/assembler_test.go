package report_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/report"
)

func article(url string, rank models.Rank, score int) models.Article {
	return models.Article{
		ID:         identity.ID(url),
		Title:      "Title " + url[len(url)-1:],
		URL:        url,
		Category:   "技術",
		Source:     models.SourceHatena,
		Score:      score,
		ScoreLabel: strconv.Itoa(score) + " users",
		Rank:       rank,
		Summary:    "summary " + url[len(url)-1:],
	}
}

func TestAssembleSortsAndSummarises(t *testing.T) {
	in := report.AssembleInput{
		Date:        "2026-10-19",
		GeneratedAt: time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC),
		Articles: []models.Article{
			article("https://example.com/1", models.RankB, 10),
			article("https://example.com/2", models.RankS, 5),
			article("https://example.com/3", models.RankB, 50),
			article("https://example.com/4", models.RankNone, 999),
			article("https://example.com/5", models.RankS, 80),
		},
	}

	r := report.Assemble(in)

	var got []string
	for _, a := range r.Articles {
		got = append(got, a.URL[len(a.URL)-1:])
	}
	require.Equal(t, []string{"5", "2", "3", "1", "4"}, got)
	require.Equal(t, models.Summary{Total: 5, S: 2, B: 2}, r.Summary)
	require.Equal(t, "2026-10-19T09:15:00", r.GeneratedAt)
	require.Equal(t, models.DefaultDataSources, r.DataSources)
	require.Equal(t, "1", in.Articles[0].URL[len(in.Articles[0].URL)-1:], "input must not be reordered")
}

func TestAssembleDerivesPickupAndTrendIDs(t *testing.T) {
	r := report.Assemble(report.AssembleInput{
		Date:     "2026-10-19",
		Articles: []models.Article{article("https://example.com/1", models.RankA, 1)},
		Trends: []report.Trend{{
			Topic: "AI", Description: "d", URLs: []string{"https://example.com/1"},
		}},
		Pickups: []report.PickupRef{
			{Position: 2, URL: "https://example.com/x", Reason: "b"},
			{Position: 1, URL: "https://example.com/1", Reason: "a"},
		},
	})

	require.Equal(t, []string{identity.ID("https://example.com/1")}, r.TrendAnalysis[0].RelatedArticleIDs)
	require.Equal(t, 1, r.PickupTop3[0].Position)
	require.Equal(t, identity.ID("https://example.com/1"), r.PickupTop3[0].ArticleID)
	require.Equal(t, identity.ID("https://example.com/x"), r.PickupTop3[1].ArticleID)
}

func TestMarkdownRoundTrip(t *testing.T) {
	ja := "日本語タイトル"
	sub := "r/golang"
	articles := []models.Article{
		article("https://example.com/s1", models.RankS, 300),
		article("https://example.com/s2", models.RankS, 120),
		{
			ID: identity.ID("https://news.example.jp/a1"), Title: "Yahoo one", TitleJa: &ja,
			URL: "https://news.example.jp/a1", Category: "経済", Source: models.SourceYahoo,
			ScoreLabel: "日経新聞", Rank: models.RankA, Summary: "要約", Checked: true,
		},
		article("https://example.com/a2", models.RankA, 0),
		{
			ID: identity.ID("https://www.reddit.com/r/golang/comments/b1"), Title: "Reddit one",
			URL: "https://www.reddit.com/r/golang/comments/b1", Category: "開発", Source: models.SourceReddit,
			Score: 42, ScoreLabel: "42pt 7comments", Subreddit: &sub, Rank: models.RankB, Summary: "議論",
		},
		article("https://example.com/b2", models.RankB, 3),
	}

	orig := report.Assemble(report.AssembleInput{
		Date:        "2026-10-19",
		GeneratedAt: time.Date(2026, 10, 19, 7, 0, 0, 0, time.UTC),
		Articles:    articles,
		Pickups: []report.PickupRef{
			{Position: 1, URL: "https://example.com/s1", Reason: "一番"},
			{Position: 2, URL: "https://www.reddit.com/r/golang/comments/b1", Reason: "二番"},
		},
	})

	res := report.Parse(report.RenderMarkdown(orig))
	require.Empty(t, res.Warnings)

	parsed := res.Report
	require.Equal(t, orig.Date, parsed.Date)
	require.Equal(t, orig.GeneratedAt, parsed.GeneratedAt)
	require.Equal(t, orig.Summary, parsed.Summary)
	require.Equal(t, orig.PickupTop3, parsed.PickupTop3)
	require.Len(t, parsed.Articles, len(orig.Articles))
	for i := range orig.Articles {
		want, got := orig.Articles[i], parsed.Articles[i]
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.Title, got.Title)
		require.Equal(t, want.URL, got.URL)
		require.Equal(t, want.Rank, got.Rank)
		require.Equal(t, want.Source, got.Source)
		require.Equal(t, want.Category, got.Category)
		require.Equal(t, want.Score, got.Score)
		require.Equal(t, want.ScoreLabel, got.ScoreLabel)
		require.Equal(t, want.Summary, got.Summary)
		require.Equal(t, want.Checked, got.Checked)
		require.Equal(t, models.Deref(want.TitleJa), models.Deref(got.TitleJa))
		require.Equal(t, models.Deref(want.Subreddit), models.Deref(got.Subreddit))
	}
}

func TestMarkdownRoundTripBracketsAndParens(t *testing.T) {
	const (
		pdfURL  = "https://example.com/notes[1].pdf"
		wikiURL = "https://en.wikipedia.org/wiki/Go_(programming_language)"
		backURL = `https://example.com/a\\b`
	)
	articles := []models.Article{
		{ID: identity.ID(pdfURL), Title: "[PDF] Go 1.26 release notes", URL: pdfURL, Source: models.SourceHatena, Rank: models.RankS},
		{ID: identity.ID(wikiURL), Title: "Go (programming language)", URL: wikiURL, Source: models.SourceReddit, Rank: models.RankA, Checked: true},
		{ID: identity.ID(backURL), Title: `[D] a\\b ] )`, URL: backURL, Source: models.SourceReddit, Rank: models.RankB},
	}
	orig := report.Assemble(report.AssembleInput{
		Date:     "2026-10-19",
		Articles: articles,
		Pickups:  []report.PickupRef{{Position: 1, URL: wikiURL, Reason: "r"}},
	})

	res := report.Parse(report.RenderMarkdown(orig))
	require.Empty(t, res.Warnings)
	require.Len(t, res.Report.Articles, 3)
	for i, a := range res.Report.Articles {
		require.Equal(t, orig.Articles[i].Title, a.Title)
		require.Equal(t, orig.Articles[i].URL, a.URL)
		require.Equal(t, orig.Articles[i].ID, a.ID)
		require.Equal(t, orig.Articles[i].Checked, a.Checked)
	}
	require.Equal(t, orig.PickupTop3, res.Report.PickupTop3)
}

func TestMarkdownRoundTripTrendsSourcesAndUnranked(t *testing.T) {
	yahoo := article("https://news.example.jp/y", models.RankB, 0)
	yahoo.Source = models.SourceYahoo
	yahoo.ScoreLabel = "Yahoo ニュース"

	orig := report.Assemble(report.AssembleInput{
		Date:        "2026-10-19",
		DataSources: []string{"はてなブックマーク", "Reddit"},
		Articles: []models.Article{
			article("https://example.com/1", models.RankA, 10),
			article("https://example.com/2", models.RankNone, 5),
			yahoo,
		},
		Trends: []report.Trend{
			{Topic: "AI エージェント", Description: "自律型の話題が増加", URLs: []string{"https://example.com/1", "https://example.com/2"}},
			{Topic: "空", Description: "", URLs: nil},
		},
	})

	md := report.RenderMarkdown(orig)
	require.Contains(t, md, report.UnrankedHeading)

	res := report.Parse(md)
	require.Empty(t, res.Warnings)
	parsed := res.Report
	require.Equal(t, orig.TrendAnalysis, parsed.TrendAnalysis)
	require.Equal(t, orig.DataSources, parsed.DataSources)
	require.Equal(t, orig.Summary, parsed.Summary)
	require.Len(t, parsed.Articles, 3)
	require.Equal(t, models.RankNone, parsed.Articles[2].Rank)
	require.Equal(t, "summary 2", parsed.Articles[2].Summary)
	require.Equal(t, "Yahoo ニュース", parsed.Articles[1].ScoreLabel)
}

func TestRenderMarkdownWritesEmptyRankSections(t *testing.T) {
	md := report.RenderMarkdown(models.Report{Date: "2026-10-19"})
	for _, h := range []string{"## S ランク", "## A ランク", "## B ランク", "## C ランク"} {
		require.Contains(t, md, h)
	}
	require.NotContains(t, md, report.PickupHeading)
}

func TestJSONCodec(t *testing.T) {
	r := report.Assemble(report.AssembleInput{
		Date:     "2026-10-19",
		Articles: []models.Article{article("https://example.com/q?a=1&b=<2>", models.RankC, 1)},
	})

	data, err := report.EncodeJSON(r)
	require.NoError(t, err)
	require.True(t, bytes.Contains(data, []byte(`"url": "https://example.com/q?a=1&b=<2>"`)))
	require.True(t, bytes.Contains(data, []byte(`"titleJa": null`)))

	back, err := report.DecodeJSON(data)
	require.NoError(t, err)
	require.Equal(t, r, back)

	_, err = report.DecodeJSON([]byte("{"))
	require.Error(t, err)
}

func TestCurationApply(t *testing.T) {
	doc := `
date: "2026-10-19"
articles:
  - url: https://example.com/1
    rank: S
    category: AI
    summary: 要約
    titleJa: タイトル
  - url: https://example.com/missing
    rank: A
  - url: https://example.com/2
    rank: Z
pickups:
  - position: 1
    url: https://example.com/1
    reason: 理由
`
	c, err := report.LoadCuration(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "2026-10-19", c.Date)
	require.Len(t, c.Pickups, 1)

	fetched := time.Now()
	in := []models.Article{
		article("https://example.com/1", models.RankNone, 10),
		article("https://example.com/2", models.RankNone, 20),
		article("https://example.com/3", models.RankNone, 30),
	}
	in[0].Tags = []string{"go"}
	in[0].FetchedAt = &fetched

	out, warnings := c.Apply(in)

	require.Len(t, out, 1)
	require.Equal(t, models.RankS, out[0].Rank)
	require.Equal(t, "AI", out[0].Category)
	require.Equal(t, "要約", out[0].Summary)
	require.Equal(t, "タイトル", models.Deref(out[0].TitleJa))
	require.Nil(t, out[0].Tags)
	require.Nil(t, out[0].FetchedAt)
	require.Len(t, warnings, 2)
}
