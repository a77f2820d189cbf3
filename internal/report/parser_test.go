package report_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/report"
)

const sampleReport = `# 2026年10月19日 ヘッドライン

生成日時: 2026-10-19 08:30
記事総数: 3件（S: 1件 / A: 1件 / B: 1件 / C: 0件）

## S ランク

- [x] **[Go 1.26 released](https://go.dev/blog/go1.26)** - Go 1.26 リリース
  - 技術 | はてブ | 512 users | ⭐ S
  - 新しいイテレータ機能が追加された

## A ランク

- [ ] **[Rate limits explained](https://example.com/rate)**
  - 経済 | Yahoo | 日経新聞 | ⭐ A
  - 金利の話

## B ランク

- [ ] **[Show HN style post](https://www.reddit.com/r/golang/comments/abc/x/)**
  - 開発 | Reddit | r/golang | 120pt 45comments | ⭐ B
  - Reddit の議論

## C ランク

## 本日のピックアップ

### 1. [Go 1.26 released](https://go.dev/blog/go1.26)
**選出理由**: 言語の大型アップデート

### 2. [Rate limits explained](https://example.com/rate)

**選出理由**: 分かりやすい
`

func TestParseSampleReport(t *testing.T) {
	res := report.Parse(sampleReport)
	require.Empty(t, res.Warnings)

	r := res.Report
	require.Equal(t, "2026-10-19", r.Date)
	require.Equal(t, "2026-10-19T08:30:00", r.GeneratedAt)
	require.Equal(t, models.Summary{Total: 3, S: 1, A: 1, B: 1}, r.Summary)
	require.Equal(t, models.DefaultDataSources, r.DataSources)
	require.Len(t, r.Articles, 3)

	hatena := r.Articles[0]
	require.Equal(t, identity.ID("https://go.dev/blog/go1.26"), hatena.ID)
	require.Equal(t, "Go 1.26 released", hatena.Title)
	require.NotNil(t, hatena.TitleJa)
	require.Equal(t, "Go 1.26 リリース", *hatena.TitleJa)
	require.Equal(t, "技術", hatena.Category)
	require.Equal(t, models.SourceHatena, hatena.Source)
	require.Equal(t, 512, hatena.Score)
	require.Equal(t, "512 users", hatena.ScoreLabel)
	require.Equal(t, models.RankS, hatena.Rank)
	require.True(t, hatena.Checked)
	require.Equal(t, "新しいイテレータ機能が追加された", hatena.Summary)

	yahoo := r.Articles[1]
	require.Equal(t, models.SourceYahoo, yahoo.Source)
	require.Equal(t, "日経新聞", yahoo.ScoreLabel)
	require.Equal(t, 0, yahoo.Score)
	require.Nil(t, yahoo.TitleJa)
	require.False(t, yahoo.Checked)

	reddit := r.Articles[2]
	require.Equal(t, models.SourceReddit, reddit.Source)
	require.NotNil(t, reddit.Subreddit)
	require.Equal(t, "r/golang", *reddit.Subreddit)
	require.Equal(t, 120, reddit.Score)
	require.Equal(t, "120pt 45comments", reddit.ScoreLabel)
	require.Equal(t, models.RankB, reddit.Rank)

	require.Equal(t, []models.Pickup{
		{Position: 1, ArticleID: hatena.ID, Reason: "言語の大型アップデート"},
		{Position: 2, ArticleID: yahoo.ID, Reason: "分かりやすい"},
	}, r.PickupTop3)
}

func TestParseIDsMatchIdentity(t *testing.T) {
	res := report.Parse(sampleReport)
	for _, a := range res.Report.Articles {
		require.Equal(t, identity.ID(a.URL), a.ID)
	}
}

func TestParseTruncatedRecordAtEOF(t *testing.T) {
	text := "## A ランク\n\n- [ ] **[Only title](https://example.com/t)**\n  - 技術 | はてブ | 10 users | ⭐ A"

	res := report.Parse(text)

	require.Len(t, res.Report.Articles, 1)
	a := res.Report.Articles[0]
	require.Equal(t, "", a.Summary)
	require.Equal(t, 10, a.Score)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0].Message, "truncated record")
	require.Equal(t, 3, res.Warnings[0].Line)
}

func TestParseTruncatedRecordBeforeNextEntry(t *testing.T) {
	text := strings.Join([]string{
		"## S ランク",
		"- [ ] **[First](https://example.com/1)**",
		"- [ ] **[Second](https://example.com/2)**",
		"  - 技術 | はてブ | 3 users | ⭐ S",
		"  - 二つ目",
	}, "\n")

	res := report.Parse(text)

	require.Len(t, res.Report.Articles, 2)
	require.Equal(t, "", res.Report.Articles[0].Category)
	require.Equal(t, "", res.Report.Articles[0].Summary)
	require.Equal(t, "二つ目", res.Report.Articles[1].Summary)
	require.Len(t, res.Warnings, 1)
}

func TestParseIgnoresEntriesOutsideRankSections(t *testing.T) {
	text := strings.Join([]string{
		"- [ ] **[Stray](https://example.com/stray)**",
		"  - meta",
		"  - summary",
		"## 本日のピックアップ",
		"- [ ] **[Also stray](https://example.com/also)**",
	}, "\n")

	res := report.Parse(text)
	require.Empty(t, res.Report.Articles)
}

func TestParseWarnings(t *testing.T) {
	text := strings.Join([]string{
		"## S ランク",
		"- [ ] **[broken link](missing paren**",
		"## S ランク",
		"## 本日のピックアップ",
		"### 1. [Ghost](https://example.com/ghost)",
		"**選出理由**: なし",
	}, "\n")

	res := report.Parse(text)

	require.Empty(t, res.Report.Articles)
	require.Len(t, res.Warnings, 3)
	require.Contains(t, res.Warnings[0].Message, "link")
	require.Contains(t, res.Warnings[1].Message, "duplicate S")
	require.Contains(t, res.Warnings[2].Message, "not among the articles")
	require.Len(t, res.Report.PickupTop3, 1)
	require.Equal(t, identity.ID("https://example.com/ghost"), res.Report.PickupTop3[0].ArticleID)
}

func TestParseMissingHeaderMarkers(t *testing.T) {
	res := report.Parse("no markers here")
	require.Equal(t, "", res.Report.Date)
	require.Equal(t, "", res.Report.GeneratedAt)
	require.Equal(t, models.Summary{}, res.Report.Summary)
	require.NotNil(t, res.Report.Articles)
	require.Nil(t, res.Report.PickupTop3)
}

func TestParseCRLF(t *testing.T) {
	text := strings.ReplaceAll(sampleReport, "\n", "\r\n")
	res := report.Parse(text)
	require.Len(t, res.Report.Articles, 3)
	require.Equal(t, "新しいイテレータ機能が追加された", res.Report.Articles[0].Summary)
}

func TestWarningString(t *testing.T) {
	require.Equal(t, "line 4: x", report.Warning{Line: 4, Message: "x"}.String())
	require.Equal(t, "x", report.Warning{Message: "x"}.String())
}
