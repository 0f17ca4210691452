package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tenantcare/auth-service/internal/application/reset"
)

const (
	// Maximum time to wait for the broker's Return / Confirm.
	defaultConfirmWait = 2 * time.Second
)

// Publisher publishes reset events to a topic exchange named after the bus
// topic, routed by event type. Channels run in confirm mode and every publish
// is mandatory, so unroutable and nacked messages surface as errors.
type Publisher struct {
	url         string
	confirmWait time.Duration

	mu sync.Mutex

	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url string) (*Publisher, error) {
	p := &Publisher{
		url:         url,
		confirmWait: defaultConfirmWait,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetConn()
	return nil
}

// ---- reset.EventPublisher ----

func (p *Publisher) Publish(ctx context.Context, topic string, evt reset.Envelope) error {
	msg, err := buildPublishing(evt)
	if err != nil {
		return err
	}
	return p.publish(ctx, topic, evt.EventType, msg)
}

// buildPublishing encodes evt as a persistent JSON message.
func buildPublishing(evt reset.Envelope) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	ts := evt.Metadata.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.Metadata.EventID,
		Type:         evt.EventType,
		AppId:        evt.Metadata.Source,
		Timestamp:    ts,
		Headers: amqp.Table{
			"tenant_id": evt.TenantID,
		},
		Body: body,
	}, nil
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Enable confirm mode.
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	p.declared = map[string]bool{}
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	return p.connect()
}

// ensureExchange declares the topic exchange once per connection (idempotent).
func (p *Publisher) ensureExchange(name string) error {
	if p.declared[name] {
		return nil
	}
	if err := p.ch.ExchangeDeclare(
		name,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		p.resetConn()
		return fmt.Errorf("exchange declare: %w", err)
	}
	p.declared[name] = true
	return nil
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	// Ensure there is a deadline to avoid blocking forever.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.confirmWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}
	if err := p.ensureExchange(exchange); err != nil {
		return err
	}

	// Drain any stale confirm / return messages to avoid mixing results.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		msg,
	); err != nil {
		// Publish call itself failed (channel/connection level error).
		p.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	// Wait for Return / Confirm / Timeout.
	select {
	case ret := <-p.returnCh:
		// No queue is bound for this routing key.
		return fmt.Errorf(
			"rabbitmq unroutable: exchange=%s key=%s code=%d text=%s",
			exchange, routingKey, ret.ReplyCode, ret.ReplyText,
		)

	case conf := <-p.confirmCh:
		// The broker sends basic.return before basic.ack for unroutable
		// mandatory messages, so a pending Return here belongs to this publish.
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf(
				"rabbitmq unroutable: exchange=%s key=%s code=%d text=%s",
				exchange, routingKey, ret.ReplyCode, ret.ReplyText,
			)
		default:
		}

		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err())
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.declared = nil
}
