package models

import "time"

// ArticleDocument is the shape stored in the search index.
type ArticleDocument struct {
	Article
	Keywords []string `json:"keywords"`
	// Links are URLs mentioned in the description, e.g. in a self post.
	Links     []string  `json:"links,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	IndexedAt time.Time `json:"indexedAt"`
}
