package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// RenderMarkdown writes r in the format Parse reads back.
func RenderMarkdown(r models.Report) string {
	var b strings.Builder

	writeHeader(&b, r)

	if len(r.TrendAnalysis) > 0 {
		b.WriteString(TrendHeading + "\n\n")
		for _, t := range r.TrendAnalysis {
			fmt.Fprintf(&b, "### %s\n%s\n%s %s\n\n", t.Topic, t.Description, relatedPrefix, strings.Join(t.RelatedArticleIDs, ", "))
		}
	}

	byRank := make(map[models.Rank][]models.Article, len(models.Ranks))
	for _, a := range r.Articles {
		byRank[a.Rank] = append(byRank[a.Rank], a)
	}
	for _, rank := range models.Ranks {
		fmt.Fprintf(&b, "## %s ランク\n\n", rank)
		for _, a := range byRank[rank] {
			writeEntry(&b, a)
		}
		b.WriteString("\n")
	}
	if unranked := byRank[models.RankNone]; len(unranked) > 0 {
		b.WriteString(UnrankedHeading + "\n\n")
		for _, a := range unranked {
			writeEntry(&b, a)
		}
		b.WriteString("\n")
	}

	if len(r.PickupTop3) > 0 {
		b.WriteString(PickupHeading + "\n\n")
		for _, p := range r.PickupTop3 {
			i := r.ArticleByID(p.ArticleID)
			if i < 0 {
				continue
			}
			a := r.Articles[i]
			fmt.Fprintf(&b, "### %d. [%s](%s)\n**選出理由**: %s\n\n", p.Position, escapeLink(a.Title), escapeLink(a.URL), p.Reason)
		}
	}

	return b.String()
}

func writeHeader(b *strings.Builder, r models.Report) {
	if d, err := time.Parse("2006-01-02", r.Date); err == nil {
		fmt.Fprintf(b, "# %s ヘッドライン\n\n", d.Format("2006年01月02日"))
	} else {
		b.WriteString("# ヘッドライン\n\n")
	}
	if ts, err := time.Parse(GeneratedAtLayout, r.GeneratedAt); err == nil {
		fmt.Fprintf(b, "生成日時: %s\n", ts.Format("2006-01-02 15:04"))
	}
	s := r.Summary
	fmt.Fprintf(b, "記事総数: %d件（S: %d件 / A: %d件 / B: %d件 / C: %d件）\n", s.Total, s.S, s.A, s.B, s.C)
	if len(r.DataSources) > 0 {
		fmt.Fprintf(b, "データソース: %s\n", strings.Join(r.DataSources, " / "))
	}
	b.WriteString("\n")
}

func writeEntry(b *strings.Builder, a models.Article) {
	box := " "
	if a.Checked {
		box = "x"
	}
	fmt.Fprintf(b, "- [%s] **[%s](%s)**", box, escapeLink(a.Title), escapeLink(a.URL))
	if a.TitleJa != nil && *a.TitleJa != "" {
		fmt.Fprintf(b, " - %s", *a.TitleJa)
	}
	b.WriteString("\n")

	fields := []string{a.Category, sourceLabel(a.Source)}
	if a.Source == models.SourceReddit && a.Subreddit != nil {
		fields = append(fields, *a.Subreddit)
	}
	if a.ScoreLabel != "" {
		fields = append(fields, a.ScoreLabel)
	}
	if a.Rank != models.RankNone {
		fields = append(fields, rankMarker+" "+string(a.Rank))
	}
	fmt.Fprintf(b, "  - %s\n", strings.Join(fields, " | "))
	fmt.Fprintf(b, "  - %s\n", a.Summary)
}

func sourceLabel(s models.Source) string {
	switch s {
	case models.SourceYahoo:
		return labelYahoo
	case models.SourceReddit:
		return labelReddit
	default:
		return labelHatena
	}
}

var linkEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, `(`, `\(`, `)`, `\)`)

// escapeLink backslash-escapes the characters that would end a link text or target early.
func escapeLink(s string) string {
	return linkEscaper.Replace(s)
}

// unescapeLink reverses escapeLink. A backslash always takes the next character literally.
func unescapeLink(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
