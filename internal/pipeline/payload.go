package pipeline

// HatenaItem is one entry of a bookmarking-site hot-entry feed.
type HatenaItem struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Bookmarks   int      `json:"bookmarks"`
	Date        string   `json:"date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

// YahooItem is one entry of a news-aggregator topic feed. Source is the
// outlet label taken from the title.
type YahooItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Date        string `json:"date,omitempty"`
	Source      string `json:"source"`
	Feed        string `json:"feed,omitempty"`
	FeedLabel   string `json:"feed_label,omitempty"`
	Description string `json:"description"`
}

// RedditItem is one hot post of a forum board.
type RedditItem struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink,omitempty"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author,omitempty"`
	IsSelf      bool    `json:"is_self,omitempty"`
	Stickied    bool    `json:"stickied,omitempty"`
	CreatedUTC  float64 `json:"created_utc,omitempty"`
}

// Payloads holds the three complete raw collections for one run.
type Payloads struct {
	Hatena []HatenaItem `json:"hatena"`
	Yahoo  []YahooItem  `json:"yahoo"`
	Reddit []RedditItem `json:"reddit"`
}

// ExclusionSet is a set of exact URLs that must never be reported.
type ExclusionSet map[string]struct{}

// NewExclusionSet builds a set from urls.
func NewExclusionSet(urls ...string) ExclusionSet {
	s := make(ExclusionSet, len(urls))
	for _, u := range urls {
		s[u] = struct{}{}
	}
	return s
}

// Contains reports whether url is excluded. A nil set excludes nothing.
func (s ExclusionSet) Contains(url string) bool {
	_, ok := s[url]
	return ok
}
