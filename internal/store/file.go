package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/blog-comments/internal/forest"
	"github.com/example/blog-comments/internal/validate"
)

const (
	ioAttempts     = 3
	initialBackoff = 50 * time.Millisecond

	// Idle per-article locks are pruned once the map grows past this.
	// Held or waited-on locks are never removed.
	maxIdleLocks = 256
)

// FileStore keeps one JSON artifact per article under
// <dir>/<category>/<articleID>.json, with the previous version preserved at
// <articleID>.json.bak. Every mutation is a full load-mutate-persist cycle
// under a per-article lock, so concurrent writers against the same article
// never lose each other's changes while different articles proceed in
// parallel.
type FileStore struct {
	dir string
	log *zap.Logger

	mu    sync.Mutex
	locks map[string]*articleLock
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		log:   log,
		locks: make(map[string]*articleLock),
	}, nil
}

type articleLock struct {
	mu   sync.Mutex
	refs int
}

// acquire takes the per-article lock, creating it on first use. refs counts
// the holder plus any waiters, so release never prunes a lock another
// goroutine still wants.
func (s *FileStore) acquire(category, articleID string) *articleLock {
	key := category + "/" + articleID
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &articleLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()
	l.mu.Lock()
	return l
}

func (s *FileStore) release(category, articleID string, l *articleLock) {
	l.mu.Unlock()
	s.mu.Lock()
	l.refs--
	if l.refs == 0 && len(s.locks) > maxIdleLocks {
		delete(s.locks, category+"/"+articleID)
	}
	s.mu.Unlock()
}

func (s *FileStore) articlePath(category, articleID string) string {
	return filepath.Join(s.dir, category, articleID+".json")
}

// withRetry runs fn up to ioAttempts times with doubling backoff, honouring
// ctx between attempts. The last error comes back unwrapped; callers decide
// how to classify it.
func (s *FileStore) withRetry(ctx context.Context, op, path string, fn func() error) error {
	delay := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= ioAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		s.log.Warn("forest "+op+" failed",
			zap.String("path", path), zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt == ioAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

func storageErr(err error, op, articleID string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %v", ErrStorageUnavailable, op, articleID, err)
}

// load reads and decodes the article's forest, retrying transient read
// failures with the same bounded backoff as writes. A missing file is an
// empty forest. A corrupt file is also served as empty, but flagged in the
// log so the data loss is operationally visible.
func (s *FileStore) load(ctx context.Context, category, articleID string) (forest.Forest, error) {
	path := s.articlePath(category, articleID)
	var raw []byte
	err := s.withRetry(ctx, "read", path, func() error {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				raw = nil
				return nil
			}
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		return nil, storageErr(err, "read", articleID)
	}
	if raw == nil {
		return forest.Forest{}, nil
	}
	f, err := forest.Decode(raw)
	if err != nil {
		s.log.Warn("forest file corrupt, serving empty forest",
			zap.String("path", path), zap.Error(err))
	}
	return f, nil
}

// persist writes the forest durably: the current artifact is renamed to its
// backup, then the new version is written to a temp file and renamed into
// place. A crash mid-write leaves either the old current or the backup as a
// recoverable prior-good snapshot.
func (s *FileStore) persist(ctx context.Context, category, articleID string, f forest.Forest) error {
	data, err := forest.Encode(f)
	if err != nil {
		return err
	}
	path := s.articlePath(category, articleID)
	err = s.withRetry(ctx, "write", path, func() error {
		return writeWithBackup(path, data)
	})
	if err != nil {
		return storageErr(err, "write", articleID)
	}
	return nil
}

func writeWithBackup(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// update runs one serialized load-mutate-persist cycle for an article.
func (s *FileStore) update(ctx context.Context, category, articleID string, fn func(forest.Forest) (forest.Forest, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.acquire(category, articleID)
	defer s.release(category, articleID, l)

	f, err := s.load(ctx, category, articleID)
	if err != nil {
		return err
	}
	f, err = fn(f)
	if err != nil {
		return err
	}
	return s.persist(ctx, category, articleID, f)
}

func (s *FileStore) List(ctx context.Context, category, articleID string) (forest.Forest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := s.acquire(category, articleID)
	defer s.release(category, articleID, l)
	return s.load(ctx, category, articleID)
}

func (s *FileStore) AddRootComment(ctx context.Context, category, articleID string, fields validate.Fields) (*forest.Comment, error) {
	c := newComment(fields, time.Now().UTC())
	err := s.update(ctx, category, articleID, func(f forest.Forest) (forest.Forest, error) {
		return append(f, c), nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *FileStore) AddReply(ctx context.Context, category, articleID, parentID string, fields validate.Fields) (*forest.Comment, error) {
	c := newComment(fields, time.Now().UTC())
	err := s.update(ctx, category, articleID, func(f forest.Forest) (forest.Forest, error) {
		_, path, ok := forest.Find(f, parentID)
		if !ok {
			return nil, ErrCommentNotFound
		}
		if path.Depth()+1 > forest.MaxDepth {
			return nil, ErrDepthLimitExceeded
		}
		parent := forest.NodeAt(f, path)
		parent.Replies = append(parent.Replies, c)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *FileStore) EditComment(ctx context.Context, category, articleID, commentID string, fields validate.Fields) (*forest.Comment, error) {
	var edited *forest.Comment
	err := s.update(ctx, category, articleID, func(f forest.Forest) (forest.Forest, error) {
		node, _, ok := forest.Find(f, commentID)
		if !ok {
			return nil, ErrCommentNotFound
		}
		now := time.Now().UTC()
		node.AuthorName = fields.Name
		node.AuthorEmail = fields.Email
		node.Body = fields.Body
		node.EditedAt = &now
		edited = node.Clone()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

func (s *FileStore) DeleteComment(ctx context.Context, category, articleID, commentID string) error {
	return s.update(ctx, category, articleID, func(f forest.Forest) (forest.Forest, error) {
		_, path, ok := forest.Find(f, commentID)
		if !ok {
			return nil, ErrCommentNotFound
		}
		return forest.RemoveAt(f, path), nil
	})
}
