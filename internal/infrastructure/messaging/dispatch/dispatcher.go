package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tenantcare/auth-service/internal/application/reset"
	"github.com/tenantcare/auth-service/internal/logger"
	"github.com/tenantcare/auth-service/internal/metrics"
)

const DefaultPublishTimeout = 5 * time.Second

var ErrClosed = errors.New("dispatcher closed")

// Dispatcher publishes events in the background. Each publish runs detached
// from the request that triggered it, under its own timeout. Close waits for
// in-flight publishes.
type Dispatcher struct {
	pub     reset.EventPublisher
	topic   string
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(pub reset.EventPublisher, topic string, timeout time.Duration) *Dispatcher {
	if topic == "" {
		topic = reset.DefaultEventTopic
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Dispatcher{pub: pub, topic: topic, timeout: timeout}
}

func (d *Dispatcher) Dispatch(evt reset.Envelope) *reset.PublishTask {
	task := reset.NewPublishTask()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		res := reset.PublishResult{EventID: evt.Metadata.EventID, Topic: d.topic, Err: ErrClosed}
		d.observe(evt, res)
		task.Complete(res)
		return task
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		res := d.publish(evt)
		d.observe(evt, res)
		task.Complete(res)
	}()
	return task
}

func (d *Dispatcher) publish(evt reset.Envelope) (res reset.PublishResult) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	res = reset.PublishResult{EventID: evt.Metadata.EventID, Topic: d.topic}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("publisher panic: %v", r)
		}
		res.Duration = time.Since(start)
	}()

	res.Err = d.pub.Publish(ctx, d.topic, evt)
	return res
}

func (d *Dispatcher) observe(evt reset.Envelope, res reset.PublishResult) {
	metrics.EventPublishDuration.WithLabelValues(res.Topic).Observe(res.Duration.Seconds())
	if res.OK() {
		metrics.EventPublishTotal.WithLabelValues(res.Topic, "ok").Inc()
		logger.Logger.Debug().
			Str("event_id", res.EventID).
			Str("event_type", evt.EventType).
			Str("tenant_id", evt.TenantID).
			Dur("duration", res.Duration).
			Msg("event published")
		return
	}
	metrics.EventPublishTotal.WithLabelValues(res.Topic, "error").Inc()
	logger.Logger.Error().
		Err(res.Err).
		Str("event_id", res.EventID).
		Str("event_type", evt.EventType).
		Str("tenant_id", evt.TenantID).
		Dur("duration", res.Duration).
		Msg("event publish failed")
}

// Close stops accepting events and waits for in-flight publishes or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
