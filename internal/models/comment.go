package models

// Comment is a single forum reply after flattening.
type Comment struct {
	ID         string  `json:"commentId"`
	Author     string  `json:"user"`
	Body       string  `json:"comment"`
	Score      int     `json:"score"`
	Depth      int     `json:"depth"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"createdUtc"`
}

// Post is the submission a comment thread hangs off.
type Post struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvoteRatio"`
	NumComments int     `json:"numComments"`
	URL         string  `json:"url"`
	IsSelf      bool    `json:"isSelf"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"createdUtc"`
}

// BookmarkComment is a non-empty comment left on a bookmark.
type BookmarkComment struct {
	User      string   `json:"user"`
	Comment   string   `json:"comment"`
	Timestamp string   `json:"timestamp"`
	Tags      []string `json:"tags"`
}
