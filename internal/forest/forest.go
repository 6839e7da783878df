// Package forest holds the comment tree model for a single article: the
// node type, the durable codec and the path locator used to address nodes
// structurally instead of by live pointer.
package forest

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxDepth is the deepest reply level the store accepts. Root comments sit
// at depth 0, so a chain of MaxDepth replies under a root is the longest
// thread possible.
const MaxDepth = 3

// Comment is one node in an article's forest. ID and CreatedAt are set once
// at creation and never change; EditedAt is set only when the body is edited.
type Comment struct {
	ID          string     `json:"id"`
	AuthorName  string     `json:"author_name"`
	AuthorEmail string     `json:"author_email"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	Replies     []*Comment `json:"replies"`
}

// Forest is the ordered root-level comment list for one article.
type Forest []*Comment

// NewID returns a comment id built from a time component and a random
// suffix. The time component keeps ids roughly sortable; the suffix makes
// collisions within a forest negligible.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(now.UnixNano(), 36) + "-" + suffix
}

// Count returns the total node count of the forest, replies included.
func (f Forest) Count() int {
	n := 0
	for _, c := range f {
		n += 1 + Forest(c.Replies).Count()
	}
	return n
}

// Clone returns a deep copy of the comment and its reply subtree.
func (c *Comment) Clone() *Comment {
	if c == nil {
		return nil
	}
	out := *c
	if c.EditedAt != nil {
		at := *c.EditedAt
		out.EditedAt = &at
	}
	out.Replies = make([]*Comment, len(c.Replies))
	for i, r := range c.Replies {
		out.Replies[i] = r.Clone()
	}
	return &out
}

// Clone returns a deep copy of the forest.
func (f Forest) Clone() Forest {
	out := make(Forest, len(f))
	for i, c := range f {
		out[i] = c.Clone()
	}
	return out
}
