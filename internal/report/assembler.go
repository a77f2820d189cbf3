package report

import (
	"sort"
	"time"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// GeneratedAtLayout is the timestamp format stored in generatedAt.
const GeneratedAtLayout = "2006-01-02T15:04:05"

// Trend is a curated topic whose related articles are given by URL.
type Trend struct {
	Topic       string   `yaml:"topic"`
	Description string   `yaml:"description"`
	URLs        []string `yaml:"urls"`
}

// PickupRef selects an article by URL for the top-N highlight.
type PickupRef struct {
	Position int    `yaml:"position"`
	URL      string `yaml:"url"`
	Reason   string `yaml:"reason"`
}

// AssembleInput is everything needed to build a report from curated articles.
type AssembleInput struct {
	Date        string
	GeneratedAt time.Time
	DataSources []string
	Articles    []models.Article
	Trends      []Trend
	Pickups     []PickupRef
}

// Assemble orders articles by rank then score and derives the summary.
func Assemble(in AssembleInput) models.Report {
	articles := append([]models.Article(nil), in.Articles...)
	SortArticles(articles)

	sources := in.DataSources
	if len(sources) == 0 {
		sources = models.DefaultDataSources
	}

	r := models.Report{
		Date:        in.Date,
		GeneratedAt: in.GeneratedAt.Format(GeneratedAtLayout),
		DataSources: append([]string(nil), sources...),
		Summary:     Summarize(articles),
		Articles:    articles,
	}

	for _, t := range in.Trends {
		ids := make([]string, 0, len(t.URLs))
		for _, u := range t.URLs {
			ids = append(ids, identity.ID(u))
		}
		r.TrendAnalysis = append(r.TrendAnalysis, models.TrendInsight{
			Topic:             t.Topic,
			Description:       t.Description,
			RelatedArticleIDs: ids,
		})
	}

	for _, p := range in.Pickups {
		r.PickupTop3 = append(r.PickupTop3, models.Pickup{
			Position:  p.Position,
			ArticleID: identity.ID(p.URL),
			Reason:    p.Reason,
		})
	}
	sort.SliceStable(r.PickupTop3, func(i, j int) bool {
		return r.PickupTop3[i].Position < r.PickupTop3[j].Position
	})

	return r
}

// SortArticles orders S, A, B, C, then unranked; higher score first within a rank.
func SortArticles(articles []models.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		oi, oj := articles[i].Rank.Order(), articles[j].Rank.Order()
		if oi != oj {
			return oi < oj
		}
		return articles[i].Score > articles[j].Score
	})
}

// Summarize counts articles per rank.
func Summarize(articles []models.Article) models.Summary {
	var s models.Summary
	for _, a := range articles {
		s.Add(a.Rank)
	}
	return s
}
