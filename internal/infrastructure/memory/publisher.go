package memory

import (
	"context"
	"sync"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/logger"
)

// NoopPublisher logs events instead of sending them. It keeps the last events
// so local runs and tests can inspect what would have been published.
type NoopPublisher struct {
	mu     sync.Mutex
	events []reset.Envelope
}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) Publish(ctx context.Context, topic string, evt reset.Envelope) error {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()

	logger.WithCtx(ctx).Info().
		Str("topic", topic).
		Str("event_type", evt.EventType).
		Str("event_id", evt.Metadata.EventID).
		Str("tenant_id", evt.TenantID).
		Msg("noop publisher: event dropped")
	return nil
}

func (p *NoopPublisher) Events() []reset.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reset.Envelope(nil), p.events...)
}

func (p *NoopPublisher) Close() error { return nil }
