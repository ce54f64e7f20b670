// Package bus publishes job lifecycle events to NATS.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/chirag127/TinyImage/internal/batch"
)

// DefaultSubject is the subject prefix for job events. Events go to
// <prefix>.<status>, so subscribers can filter with tinyimage.jobs.failed.
const DefaultSubject = "tinyimage.jobs"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Connect dials NATS with reconnects enabled for the lifetime of the process.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("tinyimage"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

var (
	_ Conn                 = (*nats.Conn)(nil)
	_ batch.EventPublisher = (*Publisher)(nil)
)

// Publisher implements batch.EventPublisher over a NATS connection.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher publishes under subject, or DefaultSubject when empty.
func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Subject returns the subject an event will be published on.
func (p *Publisher) Subject(ev batch.Event) string {
	return p.subject + "." + string(ev.Job.Status)
}

func (p *Publisher) Publish(ctx context.Context, ev batch.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(ev), b); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject(ev), err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

// Subscribe delivers decoded events published under prefix until ctx ends.
// Malformed messages are passed to onError and skipped.
func Subscribe(ctx context.Context, nc *nats.Conn, prefix string, handle func(batch.Event), onError func(error)) error {
	if prefix == "" {
		prefix = DefaultSubject
	}
	sub, err := nc.Subscribe(prefix+".>", func(msg *nats.Msg) {
		var ev batch.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			if onError != nil {
				onError(fmt.Errorf("decode %s: %w", msg.Subject, err))
			}
			return
		}
		handle(ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}
