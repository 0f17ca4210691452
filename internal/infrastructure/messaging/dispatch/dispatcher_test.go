package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcare/auth-service/internal/application/reset"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
	block  chan struct{}
	panics bool
	calls  atomic.Int32
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, evt reset.Envelope) error {
	p.calls.Add(1)
	if p.panics {
		panic("broker client bug")
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
	return p.err
}

func evt(id string) reset.Envelope {
	return reset.Envelope{EventType: reset.EventPasswordResetRequested, Metadata: reset.EventMetadata{EventID: id}}
}

func waitResult(t *testing.T, task *reset.PublishTask) reset.PublishResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := task.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestDispatch_Success(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, "", 0)

	res := waitResult(t, d.Dispatch(evt("e-1")))

	assert.True(t, res.OK())
	assert.Equal(t, "e-1", res.EventID)
	assert.Equal(t, reset.DefaultEventTopic, res.Topic)
	assert.Equal(t, []string{reset.DefaultEventTopic}, pub.topics)
}

func TestDispatch_FailureCapturedInResult(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unroutable")}
	d := New(pub, "auth-events", time.Second)

	res := waitResult(t, d.Dispatch(evt("e-1")))

	assert.False(t, res.OK())
	assert.EqualError(t, res.Err, "unroutable")
}

func TestDispatch_TimeoutIsIndependentOfCaller(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	d := New(pub, "auth-events", 50*time.Millisecond)

	res := waitResult(t, d.Dispatch(evt("e-1")))

	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestDispatch_PanicBecomesError(t *testing.T) {
	pub := &fakePublisher{panics: true}
	d := New(pub, "auth-events", time.Second)

	res := waitResult(t, d.Dispatch(evt("e-1")))

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "broker client bug")
}

func TestDispatch_DoesNotBlockCaller(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	d := New(pub, "auth-events", time.Second)

	task := d.Dispatch(evt("e-1"))
	_, done := task.Result()
	assert.False(t, done)

	close(pub.block)
	assert.True(t, waitResult(t, task).OK())
}

func TestClose_DrainsInFlightAndRejectsNew(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	d := New(pub, "auth-events", time.Second)

	task := d.Dispatch(evt("e-1"))

	closed := make(chan error, 1)
	go func() { closed <- d.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatalf("close returned before in-flight publish finished")
	case <-time.After(30 * time.Millisecond):
	}

	close(pub.block)
	require.NoError(t, <-closed)
	assert.True(t, waitResult(t, task).OK())

	res := waitResult(t, d.Dispatch(evt("e-2")))
	assert.ErrorIs(t, res.Err, ErrClosed)
	assert.Equal(t, int32(1), pub.calls.Load())
}

func TestClose_RespectsContext(t *testing.T) {
	pub := &fakePublisher{block: make(chan struct{})}
	d := New(pub, "auth-events", time.Minute)
	d.Dispatch(evt("e-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
	close(pub.block)
}
