// Package events publishes pipeline progress events. Each run publishes on
// its own subject so subscribers can follow a single run.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
)

// DefaultSubjectPrefix is prepended to the run ID to form the subject.
const DefaultSubjectPrefix = "insight.runs"

// Event is one stage transition of a run.
type Event struct {
	RunID      string    `json:"run_id"`
	Company    string    `json:"company"`
	Stage      string    `json:"stage"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// Publisher emits progress events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// msgPublisher is the subset of *nats.Conn the publisher uses.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes events as JSON with trace context in the headers.
type NATSPublisher struct {
	conn   msgPublisher
	close  func()
	prefix string
}

// Connect dials the NATS server at url.
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("insight-cli"))
	if err != nil {
		return nil, eris.Wrapf(err, "events: connect %s", url)
	}
	p := newPublisher(nc, prefix)
	p.close = nc.Close
	return p, nil
}

func newPublisher(conn msgPublisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject events for runID are published on.
func (p *NATSPublisher) Subject(runID string) string {
	return p.prefix + "." + runID
}

// Publish serializes ev and publishes it on the run's subject.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "events: marshal")
	}
	msg := &nats.Msg{
		Subject: p.Subject(ev.RunID),
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := p.conn.PublishMsg(msg); err != nil {
		return eris.Wrapf(err, "events: publish %s", msg.Subject)
	}
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}

// headerCarrier adapts nats.Msg headers to propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
