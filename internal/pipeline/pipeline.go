// Package pipeline merges the raw source collections into one deduplicated
// article list with stable identities.
package pipeline

import (
	"fmt"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// DefaultYahooLabel is used when an aggregator item has no outlet label.
const DefaultYahooLabel = "Yahoo ニュース"

// SourceStats counts what happened to the items of one source.
type SourceStats struct {
	Kept      int
	Excluded  int
	Duplicate int
}

// Stats is the per-source breakdown of a run.
type Stats struct {
	Hatena SourceStats
	Yahoo  SourceStats
	Reddit SourceStats
}

// Kept returns the total number of articles produced.
func (s Stats) Kept() int {
	return s.Hatena.Kept + s.Yahoo.Kept + s.Reddit.Kept
}

// Normalize is Run without the statistics.
func Normalize(p Payloads, excluded ExclusionSet) ([]models.Article, error) {
	articles, _, err := Run(p, excluded)
	return articles, err
}

// Run processes hatena, then yahoo, then reddit items. An excluded URL is
// dropped wherever it appears; otherwise the first occurrence of a URL wins.
// Output keeps source order, then item order.
func Run(p Payloads, excluded ExclusionSet) ([]models.Article, Stats, error) {
	d := deduper{
		excluded: excluded,
		seen:     make(map[string]struct{}, len(p.Hatena)+len(p.Yahoo)+len(p.Reddit)),
		out:      make([]models.Article, 0, len(p.Hatena)+len(p.Yahoo)+len(p.Reddit)),
	}

	for i, item := range p.Hatena {
		if err := d.add(models.SourceHatena, i, item.URL, &d.stats.Hatena, func(a *models.Article) {
			a.Title = item.Title
			a.Category = item.Category
			a.Score = item.Bookmarks
			a.ScoreLabel = fmt.Sprintf("%d users", item.Bookmarks)
			a.Tags = append([]string(nil), item.Tags...)
			a.Description = item.Description
		}); err != nil {
			return nil, Stats{}, err
		}
	}

	for i, item := range p.Yahoo {
		if err := d.add(models.SourceYahoo, i, item.URL, &d.stats.Yahoo, func(a *models.Article) {
			a.Title = item.Title
			a.ScoreLabel = item.Source
			if a.ScoreLabel == "" {
				a.ScoreLabel = DefaultYahooLabel
			}
			a.Description = item.Description
			a.Feed = item.Feed
		}); err != nil {
			return nil, Stats{}, err
		}
	}

	for i, item := range p.Reddit {
		if err := d.add(models.SourceReddit, i, item.URL, &d.stats.Reddit, func(a *models.Article) {
			a.Title = item.Title
			a.Score = item.Score
			a.ScoreLabel = fmt.Sprintf("%dpt %dcomments", item.Score, item.NumComments)
			a.Subreddit = models.StringPtr(item.Subreddit)
			a.Permalink = item.Permalink
		}); err != nil {
			return nil, Stats{}, err
		}
	}

	return d.out, d.stats, nil
}

type deduper struct {
	excluded ExclusionSet
	seen     map[string]struct{}
	out      []models.Article
	stats    Stats
}

func (d *deduper) add(src models.Source, index int, url string, st *SourceStats, fill func(*models.Article)) error {
	if d.excluded.Contains(url) {
		st.Excluded++
		return nil
	}
	if _, dup := d.seen[url]; dup {
		st.Duplicate++
		return nil
	}

	id, err := identity.Derive(url)
	if err != nil {
		return fmt.Errorf("%s item %d: %w", src, index, err)
	}
	d.seen[url] = struct{}{}

	a := models.Article{ID: id, URL: url, Source: src}
	fill(&a)
	d.out = append(d.out, a)
	st.Kept++
	return nil
}
