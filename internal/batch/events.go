package batch

import (
	"context"
	"time"
)

// Event is emitted on every job transition.
type Event struct {
	SessionID string    `json:"sessionId"`
	Job       Job       `json:"job"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher receives job events. Publish must not block for long; it is
// called from worker goroutines.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, ev Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }
