package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/tenantcare/auth-service/internal/application/reset"
)

// Publisher publishes reset events to NATS JetStream. Each topic is backed by
// a stream of the same name capturing "<topic>.>" subjects.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext

	mu      sync.Mutex
	streams map[string]bool
}

// NewPublisher connects to the NATS endpoint and opens a JetStream context.
func NewPublisher(url string, opts ...nats.Option) (*Publisher, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("nats jetstream: %w", err)
	}

	return &Publisher{conn: nc, js: js, streams: map[string]bool{}}, nil
}

// Close drains the underlying NATS connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

// Subject is the NATS subject an event is published on.
func Subject(topic, eventType string) string {
	return topic + "." + eventType
}

func (p *Publisher) Publish(ctx context.Context, topic string, evt reset.Envelope) error {
	if p == nil {
		return errors.New("nil publisher")
	}
	if err := p.ensureStream(topic); err != nil {
		return err
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(Subject(topic, evt.EventType))
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set("Tenant-Id", evt.TenantID)

	// MsgId lets JetStream drop duplicates inside its dedup window.
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx), nats.MsgId(evt.Metadata.EventID)); err != nil {
		return fmt.Errorf("jetstream publish: %w", err)
	}
	return nil
}

func (p *Publisher) ensureStream(topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streams[topic] {
		return nil
	}
	_, err := p.js.StreamInfo(topic)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = p.js.AddStream(&nats.StreamConfig{
			Name:     topic,
			Subjects: []string{topic + ".>"},
			Storage:  nats.FileStorage,
		})
	}
	if err != nil {
		return fmt.Errorf("jetstream stream %s: %w", topic, err)
	}
	p.streams[topic] = true
	return nil
}
