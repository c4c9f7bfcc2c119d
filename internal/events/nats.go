package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher forwards events as JSON to <prefix>.<type> subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, prefix string, opts ...nats.Option) (*NATSPublisher, error) {
	defaults := []nats.Option{
		nats.Name("intake-desk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(t EventType) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

// Forward publishes event. It matches EventHandler so it can be
// subscribed on a Dispatcher.
func (p *NATSPublisher) Forward(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(p.Subject(event.Type), data)
}

// Flush waits until the server has processed all published events.
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
