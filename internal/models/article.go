package models

import "time"

// Source identifies the upstream a record was collected from.
type Source string

const (
	SourceHatena Source = "hatena"
	SourceYahoo  Source = "yahoo"
	SourceReddit Source = "reddit"
)

// Rank is the editorial tier assigned during curation.
type Rank string

const (
	RankNone Rank = ""
	RankS    Rank = "S"
	RankA    Rank = "A"
	RankB    Rank = "B"
	RankC    Rank = "C"
)

// Ranks lists the concrete tiers in report order.
var Ranks = []Rank{RankS, RankA, RankB, RankC}

// Order returns the sort position of r; unranked articles sort last.
func (r Rank) Order() int {
	for i, rank := range Ranks {
		if r == rank {
			return i
		}
	}
	return len(Ranks)
}

// Valid reports whether r is one of S, A, B or C.
func (r Rank) Valid() bool {
	return r.Order() < len(Ranks)
}

// Article is the unified record shared by every source.
type Article struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	TitleJa    *string `json:"titleJa"`
	URL        string  `json:"url"`
	Category   string  `json:"category"`
	Source     Source  `json:"source"`
	Score      int     `json:"score"`
	ScoreLabel string  `json:"scoreLabel"`
	Subreddit  *string `json:"subreddit"`
	Rank       Rank    `json:"rank"`
	Summary    string  `json:"summary"`
	Checked    bool    `json:"checked"`

	// Upstream context for curation; never produced by the report parser.
	Tags        []string   `json:"tags,omitempty"`
	Description string     `json:"description,omitempty"`
	Feed        string     `json:"feed,omitempty"`
	Permalink   string     `json:"permalink,omitempty"`
	FetchedAt   *time.Time `json:"fetchedAt,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
