// Package report reads and writes the daily headline report.
//
// The Markdown form is edited by hand, so Parse is best-effort: anything it
// cannot recognise is skipped and reported as a Warning instead of an error.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

var (
	entryRe   = regexp.MustCompile(`^- \[([ x])\] \*\*\[`)
	linkRe    = regexp.MustCompile(`\*\*\[((?:\\.|[^\]\\])+)\]\(((?:\\.|[^)\\])+)\)\*\*`)
	titleJaRe = regexp.MustCompile(`^\s*-\s*(.+)$`)

	usersRe       = regexp.MustCompile(`^(\d+)\s*users`)
	redditScoreRe = regexp.MustCompile(`^(\d+)pt\s+(\d+)comments`)

	dateRe      = regexp.MustCompile(`(\d{4})年(\d{2})月(\d{2})日`)
	generatedRe = regexp.MustCompile(`生成日時:\s*(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2})`)
	totalsRe    = regexp.MustCompile(`記事総数:\s*(\d+)件.*S:\s*(\d+)件.*A:\s*(\d+)件.*B:\s*(\d+)件.*C:\s*(\d+)件`)
	sourcesRe   = regexp.MustCompile(`^データソース:\s*(.+)$`)

	pickupRe = regexp.MustCompile(`^###\s+(\d+)\.\s+\[((?:\\.|[^\]\\])+)\]\(((?:\\.|[^)\\])+)\)`)
	reasonRe = regexp.MustCompile(`^\*\*選出理由\*\*:\s*(.+)`)
)

const (
	// entryTrailingLines is the number of lines after an entry that belong to it.
	entryTrailingLines = 2
	// reasonLookahead bounds how far below a pickup heading the reason may appear.
	reasonLookahead = 4
)

// Source labels used on metadata lines.
const (
	labelHatena = "はてブ"
	labelYahoo  = "Yahoo"
	labelReddit = "Reddit"
	rankMarker  = "⭐"

	relatedPrefix = "関連記事:"
)

// Warning is a non-fatal inconsistency found while parsing. Line is 1-based, 0 when not tied to a line.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line == 0 {
		return w.Message
	}
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// ParseResult is the reconstructed report plus diagnostics.
type ParseResult struct {
	Report   models.Report
	Warnings []Warning
}

// Parse reconstructs a report from its Markdown text.
func Parse(text string) *ParseResult {
	lines := splitLines(text)
	res := &ParseResult{
		Report: models.Report{
			DataSources: append([]string(nil), models.DefaultDataSources...),
			Articles:    []models.Article{},
		},
	}

	parseHeader(lines, &res.Report)
	res.Report.TrendAnalysis = parseTrends(lines)
	res.Report.Articles = parseArticles(lines, &res.Warnings)
	res.Report.PickupTop3 = parsePickups(lines, res.Report.Articles, &res.Warnings)
	return res
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func parseHeader(lines []string, r *models.Report) {
	var haveDate, haveGenerated, haveTotals, haveSources bool
	for _, line := range lines {
		if !haveSources {
			if m := sourcesRe.FindStringSubmatch(line); m != nil {
				var sources []string
				for _, src := range strings.Split(m[1], "/") {
					if src = strings.TrimSpace(src); src != "" {
						sources = append(sources, src)
					}
				}
				if len(sources) > 0 {
					r.DataSources = sources
				}
				haveSources = true
			}
		}
		if !haveDate {
			if m := dateRe.FindStringSubmatch(line); m != nil {
				r.Date = m[1] + "-" + m[2] + "-" + m[3]
				haveDate = true
			}
		}
		if !haveGenerated {
			if m := generatedRe.FindStringSubmatch(line); m != nil {
				r.GeneratedAt = m[1] + "T" + m[2] + ":00"
				haveGenerated = true
			}
		}
		if !haveTotals {
			if m := totalsRe.FindStringSubmatch(line); m != nil {
				r.Summary = models.Summary{
					Total: atoi(m[1]),
					S:     atoi(m[2]),
					A:     atoi(m[3]),
					B:     atoi(m[4]),
					C:     atoi(m[5]),
				}
				haveTotals = true
			}
		}
		if haveDate && haveGenerated && haveTotals && haveSources {
			return
		}
	}
}

// window is an entry line with the lines that belong to it.
type window struct {
	start    int
	entry    string
	trailing []string
}

func (w window) line(i int) string {
	if i < len(w.trailing) {
		return w.trailing[i]
	}
	return ""
}

// entryWindow collects up to entryTrailingLines after lines[i], stopping early at
// the end of input, a section heading or another entry.
func entryWindow(lines []string, i int) window {
	w := window{start: i, entry: lines[i]}
	for k := 1; k <= entryTrailingLines; k++ {
		j := i + k
		if j >= len(lines) || isHeading(lines[j]) || entryRe.MatchString(lines[j]) {
			break
		}
		w.trailing = append(w.trailing, lines[j])
	}
	return w
}

func parseArticles(lines []string, warnings *[]Warning) []models.Article {
	articles := []models.Article{}
	seenRanks := map[models.Rank]bool{}
	var state State

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		next, heading := Transition(state, line)
		if heading {
			if next.Kind == InRank {
				if seenRanks[next.Rank] {
					*warnings = append(*warnings, Warning{Line: i + 1, Message: fmt.Sprintf("duplicate %s rank section", next.Rank)})
				}
				seenRanks[next.Rank] = true
			}
			state = next
			continue
		}

		if state.Kind != InRank || !entryRe.MatchString(line) {
			continue
		}

		w := entryWindow(lines, i)
		article, ok := parseEntry(w, state.Rank, warnings)
		if !ok {
			continue
		}
		articles = append(articles, article)
		i += len(w.trailing)
	}

	return articles
}

func parseEntry(w window, rank models.Rank, warnings *[]Warning) (models.Article, bool) {
	loc := linkRe.FindStringSubmatchIndex(w.entry)
	if loc == nil {
		*warnings = append(*warnings, Warning{Line: w.start + 1, Message: "entry without a [title](url) link"})
		return models.Article{}, false
	}
	if len(w.trailing) < entryTrailingLines {
		*warnings = append(*warnings, Warning{Line: w.start + 1, Message: fmt.Sprintf("truncated record: %d of %d trailing lines", len(w.trailing), entryTrailingLines)})
	}

	title := unescapeLink(w.entry[loc[2]:loc[3]])
	url := unescapeLink(w.entry[loc[4]:loc[5]])
	article := models.Article{
		ID:      identity.ID(url),
		Title:   title,
		URL:     url,
		Rank:    rank,
		Checked: entryRe.FindStringSubmatch(w.entry)[1] == "x",
	}
	if m := titleJaRe.FindStringSubmatch(w.entry[loc[1]:]); m != nil {
		article.TitleJa = models.StringPtr(strings.TrimSpace(m[1]))
	}

	applyMetadata(&article, stripBullet(w.line(0)))
	article.Summary = stripBullet(w.line(1))
	return article, true
}

func stripBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "- "))
}

// applyMetadata reads "category | source | score... | ⭐ rank".
func applyMetadata(a *models.Article, meta string) {
	parts := strings.Split(meta, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	a.Category = parts[0]
	a.Source = models.SourceHatena
	if len(parts) >= 2 {
		switch {
		case strings.Contains(parts[1], labelHatena):
			a.Source = models.SourceHatena
		case strings.Contains(parts[1], labelYahoo):
			a.Source = models.SourceYahoo
		case strings.Contains(parts[1], labelReddit):
			a.Source = models.SourceReddit
		}
	}

	for _, p := range parts {
		if m := usersRe.FindStringSubmatch(p); m != nil {
			a.Score = atoi(m[1])
			a.ScoreLabel = fmt.Sprintf("%d users", a.Score)
			break
		}
	}

	for _, p := range parts {
		if strings.HasPrefix(p, "r/") {
			a.Subreddit = models.StringPtr(p)
		}
		if m := redditScoreRe.FindStringSubmatch(p); m != nil {
			a.Score = atoi(m[1])
			a.ScoreLabel = m[1] + "pt " + m[2] + "comments"
		}
	}

	// Yahoo entries carry the outlet label right after the source column.
	if a.Source == models.SourceYahoo && a.ScoreLabel == "" && len(parts) >= 3 {
		if p := parts[2]; p != "" && !strings.HasPrefix(p, rankMarker) {
			a.ScoreLabel = p
		}
	}
}

func parsePickups(lines []string, articles []models.Article, warnings *[]Warning) []models.Pickup {
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, PickupHeading) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	known := make(map[string]bool, len(articles))
	for _, a := range articles {
		known[a.ID] = true
	}

	var pickups []models.Pickup
	for i := start + 1; i < len(lines); i++ {
		m := pickupRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}

		reason := ""
		for j := i + 1; j < len(lines) && j <= i+reasonLookahead; j++ {
			if rm := reasonRe.FindStringSubmatch(lines[j]); rm != nil {
				reason = rm[1]
				break
			}
		}

		url := unescapeLink(m[3])
		id := identity.ID(url)
		if !known[id] {
			*warnings = append(*warnings, Warning{Line: i + 1, Message: fmt.Sprintf("pickup %s references %s which is not among the articles", m[1], url)})
		}
		pickups = append(pickups, models.Pickup{
			Position:  atoi(m[1]),
			ArticleID: id,
			Reason:    reason,
		})
	}
	return pickups
}

// parseTrends reads the trend section: a "### topic" heading, description lines
// and a related-articles line of comma separated IDs.
func parseTrends(lines []string) []models.TrendInsight {
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, TrendHeading) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var (
		trends []models.TrendInsight
		desc   []string
	)
	flush := func() {
		if len(trends) == 0 {
			return
		}
		last := &trends[len(trends)-1]
		last.Description = strings.TrimSpace(strings.Join(desc, "\n"))
		desc = nil
	}

	for _, line := range lines[start+1:] {
		if strings.HasPrefix(line, rankHeadingPrefix) {
			break
		}
		if topic, ok := strings.CutPrefix(line, "### "); ok {
			flush()
			trends = append(trends, models.TrendInsight{
				Topic:             strings.TrimSpace(topic),
				RelatedArticleIDs: []string{},
			})
			continue
		}
		if len(trends) == 0 {
			continue
		}
		if rest, ok := strings.CutPrefix(line, relatedPrefix); ok {
			last := &trends[len(trends)-1]
			for _, id := range strings.Split(rest, ",") {
				if id = strings.TrimSpace(id); id != "" {
					last.RelatedArticleIDs = append(last.RelatedArticleIDs, id)
				}
			}
			continue
		}
		desc = append(desc, line)
	}
	flush()
	return trends
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
