package models

// DefaultDataSources names the three upstreams in report order.
var DefaultDataSources = []string{"はてなブックマーク", "Yahoo ニュース", "Reddit"}

// Summary counts articles per rank.
type Summary struct {
	Total int `json:"total"`
	S     int `json:"S"`
	A     int `json:"A"`
	B     int `json:"B"`
	C     int `json:"C"`
}

// Count returns the number recorded for r.
func (s Summary) Count(r Rank) int {
	switch r {
	case RankS:
		return s.S
	case RankA:
		return s.A
	case RankB:
		return s.B
	case RankC:
		return s.C
	}
	return 0
}

// Add increments the counter for r and the total.
func (s *Summary) Add(r Rank) {
	s.Total++
	switch r {
	case RankS:
		s.S++
	case RankA:
		s.A++
	case RankB:
		s.B++
	case RankC:
		s.C++
	}
}

// TrendInsight groups articles under a curated topic.
type TrendInsight struct {
	Topic             string   `json:"topic"`
	Description       string   `json:"description"`
	RelatedArticleIDs []string `json:"relatedArticleIds"`
}

// Pickup highlights one article with an editorial reason.
type Pickup struct {
	Position  int    `json:"position"`
	ArticleID string `json:"articleId"`
	Reason    string `json:"reason"`
}

// Report is the dated aggregate written to disk and served by the API.
type Report struct {
	Date          string         `json:"date"`
	GeneratedAt   string         `json:"generatedAt"`
	DataSources   []string       `json:"dataSources"`
	Summary       Summary        `json:"summary"`
	Articles      []Article      `json:"articles"`
	TrendAnalysis []TrendInsight `json:"trendAnalysis,omitempty"`
	PickupTop3    []Pickup       `json:"pickupTop3,omitempty"`
}

// ArticleByID returns the index of the article with id, or -1.
func (r *Report) ArticleByID(id string) int {
	for i := range r.Articles {
		if r.Articles[i].ID == id {
			return i
		}
	}
	return -1
}
