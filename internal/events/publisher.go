// Package events publishes comment lifecycle events to NATS. The publisher
// is fire-and-forget: failures are logged and never surface to the request
// path, and a nil publisher is a safe no-op for deployments without NATS.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject constants for every comment lifecycle event.
const (
	SubjectCreated = "comments.created"
	SubjectReplied = "comments.replied"
	SubjectEdited  = "comments.edited"
	SubjectDeleted = "comments.deleted"
)

// Event is the envelope sent to all comments.* subjects.
type Event struct {
	EventID    string    `json:"event_id"`
	Category   string    `json:"category"`
	ArticleID  string    `json:"article_id"`
	CommentID  string    `json:"comment_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes comment events to NATS. Pass nc=nil to get a no-op
// stub (tests, deployments without NATS).
type Publisher struct {
	nc  *nats.Conn
	log *zap.Logger
}

func New(nc *nats.Conn, log *zap.Logger) *Publisher {
	return &Publisher{nc: nc, log: log}
}

// Publish sends one event. Safe to call on a nil receiver.
func (p *Publisher) Publish(subject, category, articleID, commentID string) {
	if p == nil || p.nc == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		Category:   category,
		ArticleID:  articleID,
		CommentID:  commentID,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
