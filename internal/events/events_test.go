package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type recordingConn struct {
	msgs []*nats.Msg
	err  error
}

func (r *recordingConn) PublishMsg(m *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func TestPublish(t *testing.T) {
	conn := &recordingConn{}
	p := newPublisher(conn, "")

	err := p.Publish(context.Background(), Event{
		RunID:      "run-1",
		Company:    "Acme",
		Stage:      "scraping",
		Status:     "complete",
		DurationMs: 1200,
	})
	require.NoError(t, err)
	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "insight.runs.run-1", conn.msgs[0].Subject)

	var ev Event
	require.NoError(t, json.Unmarshal(conn.msgs[0].Data, &ev))
	assert.Equal(t, "Acme", ev.Company)
	assert.Equal(t, "scraping", ev.Stage)
	assert.Equal(t, int64(1200), ev.DurationMs)
	assert.False(t, ev.Time.IsZero())
}

func TestPublish_InjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	conn := &recordingConn{}
	require.NoError(t, newPublisher(conn, "custom").Publish(ctx, Event{RunID: "r", Time: time.Now()}))

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, "custom.r", conn.msgs[0].Subject)
	assert.Contains(t, conn.msgs[0].Header.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestPublish_Error(t *testing.T) {
	p := newPublisher(&recordingConn{err: errors.New("nats: connection closed")}, "")
	err := p.Publish(context.Background(), Event{RunID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insight.runs.r")
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	c := (*headerCarrier)(msg)

	assert.Equal(t, "", c.Get("missing"))
	assert.Nil(t, c.Keys())

	c.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Len(t, c.Keys(), 1)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	p.Close()
}
