package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/blog-comments/internal/forest"
	"github.com/example/blog-comments/internal/validate"
)

// MemoryStore is an in-process ForestStore with the same semantics as the
// file store, minus durability. Development and test backend.
type MemoryStore struct {
	mu      sync.Mutex
	forests map[string]forest.Forest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{forests: make(map[string]forest.Forest)}
}

func key(category, articleID string) string {
	return category + "/" + articleID
}

func (s *MemoryStore) List(ctx context.Context, category, articleID string) (forest.Forest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.forests[key(category, articleID)]
	if !ok {
		return forest.Forest{}, nil
	}
	return f.Clone(), nil
}

func (s *MemoryStore) AddRootComment(ctx context.Context, category, articleID string, fields validate.Fields) (*forest.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := newComment(fields, time.Now().UTC())
	k := key(category, articleID)
	s.forests[k] = append(s.forests[k], c)
	return c.Clone(), nil
}

func (s *MemoryStore) AddReply(ctx context.Context, category, articleID, parentID string, fields validate.Fields) (*forest.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.forests[key(category, articleID)]
	_, path, ok := forest.Find(f, parentID)
	if !ok {
		return nil, ErrCommentNotFound
	}
	if path.Depth()+1 > forest.MaxDepth {
		return nil, ErrDepthLimitExceeded
	}
	c := newComment(fields, time.Now().UTC())
	parent := forest.NodeAt(f, path)
	parent.Replies = append(parent.Replies, c)
	return c.Clone(), nil
}

func (s *MemoryStore) EditComment(ctx context.Context, category, articleID, commentID string, fields validate.Fields) (*forest.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.forests[key(category, articleID)]
	node, _, ok := forest.Find(f, commentID)
	if !ok {
		return nil, ErrCommentNotFound
	}
	now := time.Now().UTC()
	node.AuthorName = fields.Name
	node.AuthorEmail = fields.Email
	node.Body = fields.Body
	node.EditedAt = &now
	return node.Clone(), nil
}

func (s *MemoryStore) DeleteComment(ctx context.Context, category, articleID, commentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(category, articleID)
	f := s.forests[k]
	_, path, ok := forest.Find(f, commentID)
	if !ok {
		return ErrCommentNotFound
	}
	s.forests[k] = forest.RemoveAt(f, path)
	return nil
}
