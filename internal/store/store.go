// Package store owns durable forest state. All mutations pass through a
// ForestStore so depth limits and id uniqueness are enforced in one place.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/blog-comments/internal/forest"
	"github.com/example/blog-comments/internal/validate"
)

var (
	// ErrCommentNotFound reports that the addressed comment does not exist
	// in the article's forest. Replying to a just-deleted comment is the
	// typical way to hit it.
	ErrCommentNotFound = errors.New("comment not found")
	// ErrDepthLimitExceeded reports a reply that would nest deeper than
	// forest.MaxDepth. The forest is left untouched.
	ErrDepthLimitExceeded = errors.New("reply depth limit exceeded")
	// ErrStorageUnavailable reports a durable I/O failure that survived the
	// store's internal retries.
	ErrStorageUnavailable = errors.New("comment storage unavailable")
)

// ForestStore is the contract for per-article comment persistence.
type ForestStore interface {
	List(ctx context.Context, category, articleID string) (forest.Forest, error)
	AddRootComment(ctx context.Context, category, articleID string, fields validate.Fields) (*forest.Comment, error)
	AddReply(ctx context.Context, category, articleID, parentID string, fields validate.Fields) (*forest.Comment, error)
	EditComment(ctx context.Context, category, articleID, commentID string, fields validate.Fields) (*forest.Comment, error)
	DeleteComment(ctx context.Context, category, articleID, commentID string) error
}

func newComment(fields validate.Fields, now time.Time) *forest.Comment {
	return &forest.Comment{
		ID:          forest.NewID(now),
		AuthorName:  fields.Name,
		AuthorEmail: fields.Email,
		Body:        fields.Body,
		CreatedAt:   now,
		Replies:     []*forest.Comment{},
	}
}
