package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// CuratedArticle carries the editorial fields for one URL.
type CuratedArticle struct {
	URL      string      `yaml:"url"`
	Rank     models.Rank `yaml:"rank"`
	Category string      `yaml:"category"`
	Summary  string      `yaml:"summary"`
	TitleJa  string      `yaml:"titleJa"`
}

// Curation is the hand-written evaluation of a day's articles.
type Curation struct {
	Date     string           `yaml:"date"`
	Articles []CuratedArticle `yaml:"articles"`
	Trends   []Trend          `yaml:"trends"`
	Pickups  []PickupRef      `yaml:"pickups"`
}

// LoadCuration decodes a curation YAML document.
func LoadCuration(r io.Reader) (*Curation, error) {
	var c Curation
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode curation: %w", err)
	}
	return &c, nil
}

// Apply returns the curated subset of articles with editorial fields filled in.
// Upstream-only context is dropped so the result matches the report shape.
func (c *Curation) Apply(articles []models.Article) ([]models.Article, []Warning) {
	var warnings []Warning
	byURL := make(map[string]CuratedArticle, len(c.Articles))
	for _, ca := range c.Articles {
		if !ca.Rank.Valid() {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("curation for %s has invalid rank %q", ca.URL, ca.Rank)})
			continue
		}
		byURL[ca.URL] = ca
	}

	out := make([]models.Article, 0, len(byURL))
	used := make(map[string]bool, len(byURL))
	for _, a := range articles {
		ca, ok := byURL[a.URL]
		if !ok {
			continue
		}
		used[a.URL] = true

		a.Rank = ca.Rank
		if ca.Category != "" {
			a.Category = ca.Category
		}
		a.Summary = ca.Summary
		a.TitleJa = models.StringPtr(ca.TitleJa)
		a.Checked = false
		a.Tags = nil
		a.Description = ""
		a.Feed = ""
		a.Permalink = ""
		a.FetchedAt = nil
		out = append(out, a)
	}

	for _, ca := range c.Articles {
		if _, ok := byURL[ca.URL]; ok && !used[ca.URL] {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("curated url %s is not among the collected articles", ca.URL)})
		}
	}
	return out, warnings
}
