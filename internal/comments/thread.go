package comments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

// ErrNotThread is returned when a payload is not the [post, comments] listing pair.
var ErrNotThread = errors.New("payload is not a post/comment listing pair")

// Thread is a post with its flattened replies.
type Thread struct {
	Post     models.Post      `json:"post"`
	Comments []models.Comment `json:"comments"`
}

// ParseThread decodes the forum's two-listing thread payload.
func ParseThread(raw []byte) (*Thread, error) {
	var listings []Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}
	if len(listings) < 2 {
		return nil, ErrNotThread
	}

	t := &Thread{Comments: Flatten(listings[1].Data.Children)}
	if posts := listings[0].Data.Children; len(posts) > 0 {
		t.Post = toPost(decodeFields(posts[0].Data))
	}
	return t, nil
}

func toPost(fields map[string]json.RawMessage) models.Post {
	return models.Post{
		Title:       stringField(fields, "title", ""),
		Author:      stringField(fields, "author", deletedAuthor),
		Subreddit:   stringField(fields, "subreddit", ""),
		Score:       intField(fields, "score"),
		UpvoteRatio: floatField(fields, "upvote_ratio"),
		NumComments: intField(fields, "num_comments"),
		URL:         stringField(fields, "url", ""),
		IsSelf:      boolField(fields, "is_self"),
		Selftext:    stringField(fields, "selftext", ""),
		Permalink:   AbsolutePermalink(stringField(fields, "permalink", "")),
		CreatedUTC:  floatField(fields, "created_utc"),
	}
}
