// Package comments turns forum reply trees into flat, depth-annotated lists.
package comments

import (
	"encoding/json"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/models"
)

const (
	// KindComment marks an actual reply.
	KindComment = "t1"
	// KindMore marks replies the upstream did not return.
	KindMore = "more"

	permalinkBase = "https://www.reddit.com"
	deletedAuthor = "[deleted]"
)

// Node is one child of a listing. Data is decoded lazily so that a malformed
// node only loses its own fields.
type Node struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// UnmarshalJSON never fails: anything that is not an object with a string
// kind decodes to a zero Node, which Flatten skips.
func (n *Node) UnmarshalJSON(raw []byte) error {
	fields := decodeFields(raw)
	n.Kind = stringField(fields, "kind", "")
	n.Data = fields["data"]
	return nil
}

// Listing is the envelope the forum wraps every child list in.
type Listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []Node `json:"children"`
	} `json:"data"`
}

type frame struct {
	node  Node
	depth int
}

// Flatten walks nodes in pre-order and returns one record per comment.
// "more" sentinels and unknown kinds are skipped together with their subtree.
func Flatten(nodes []Node) []models.Comment {
	out := make([]models.Comment, 0, len(nodes))
	stack := make([]frame, 0, len(nodes))
	stack = pushReversed(stack, nodes, 0)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.node.Kind != KindComment {
			continue
		}

		fields := decodeFields(top.node.Data)
		out = append(out, toComment(fields, top.depth))

		if replies := replyNodes(fields); len(replies) > 0 {
			stack = pushReversed(stack, replies, top.depth+1)
		}
	}

	return out
}

func pushReversed(stack []frame, nodes []Node, depth int) []frame {
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: nodes[i], depth: depth})
	}
	return stack
}

func toComment(fields map[string]json.RawMessage, depth int) models.Comment {
	c := models.Comment{
		ID:         stringField(fields, "id", ""),
		Author:     stringField(fields, "author", deletedAuthor),
		Body:       stringField(fields, "body", ""),
		Score:      intField(fields, "score"),
		Depth:      depth,
		CreatedUTC: floatField(fields, "created_utc"),
	}
	c.Permalink = AbsolutePermalink(stringField(fields, "permalink", ""))
	return c
}

// AbsolutePermalink prefixes a site-relative permalink with the forum host.
func AbsolutePermalink(p string) string {
	if p == "" {
		return ""
	}
	return permalinkBase + p
}

// replyNodes returns the nested children; "" or any non-listing value means none.
func replyNodes(fields map[string]json.RawMessage) []Node {
	raw, ok := fields["replies"]
	if !ok || len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var l Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil
	}
	return l.Data.Children
}

func decodeFields(raw json.RawMessage) map[string]json.RawMessage {
	fields := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return fields
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return map[string]json.RawMessage{}
	}
	return fields
}

func stringField(fields map[string]json.RawMessage, key, fallback string) string {
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	return s
}

func intField(fields map[string]json.RawMessage, key string) int {
	return int(floatField(fields, key))
}

func floatField(fields map[string]json.RawMessage, key string) float64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

func boolField(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}
