package report

import "github.com/silmo-yokohama/knowledge-hub-public/internal/models"

// Merge lays a report parsed from Markdown over the previously stored one.
//
// The Markdown is authoritative for what an editor can change there: the
// article list and order, titles, category, rank, checkbox, summary, trends
// and pickups. Fields the Markdown never carries (tags, description, feed,
// permalink, fetch time) and the source columns are taken from prev for
// articles that already existed.
func Merge(prev, parsed models.Report) models.Report {
	out := parsed
	if out.Date == "" {
		out.Date = prev.Date
	}
	if out.GeneratedAt == "" {
		out.GeneratedAt = prev.GeneratedAt
	}

	out.Articles = make([]models.Article, len(parsed.Articles))
	for i, a := range parsed.Articles {
		j := prev.ArticleByID(a.ID)
		if j < 0 {
			out.Articles[i] = a
			continue
		}
		merged := prev.Articles[j]
		merged.Title = a.Title
		merged.TitleJa = a.TitleJa
		merged.Category = a.Category
		merged.Rank = a.Rank
		merged.Checked = a.Checked
		merged.Summary = a.Summary
		out.Articles[i] = merged
	}
	out.Summary = Summarize(out.Articles)
	return out
}
