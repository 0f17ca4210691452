package reset

import (
	"context"
	"sync"
	"time"
)

const (
	EventPasswordResetRequested = "user.password.reset.requested"
	DefaultEventTopic           = "auth-events"
	DefaultEventSource          = "auth-service"
)

// Envelope is the wire shape of every event sent to the bus.
type Envelope struct {
	EventType string        `json:"event_type"`
	TenantID  string        `json:"tenant_id"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   any           `json:"payload"`
	Metadata  EventMetadata `json:"metadata"`
}

type EventMetadata struct {
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
}

// PasswordResetRequestedPayload is consumed by the notification service to
// render and send the reset email.
type PasswordResetRequestedPayload struct {
	Email                string    `json:"email"`
	UserName             string    `json:"user_name"`
	ResetToken           string    `json:"reset_token"`
	ResetLink            string    `json:"reset_link"`
	IPAddress            string    `json:"ip_address"`
	UserAgent            string    `json:"user_agent"`
	UserID               string    `json:"user_id"`
	ExpiresAt            time.Time `json:"expires_at"`
	ResetDomain          string    `json:"reset_domain"`
	TenantName           string    `json:"tenant_name"`
	TenantLogo           string    `json:"tenant_logo"`
	TenantPrimaryColor   string    `json:"tenant_primary_color"`
	TenantSecondaryColor string    `json:"tenant_secondary_color"`
	TenantUniqueID       string    `json:"tenant_unique_id"`
	TenantSchema         string    `json:"tenant_schema"`
}

// PublishResult captures the outcome of one asynchronous publish.
type PublishResult struct {
	EventID  string
	Topic    string
	Err      error
	Duration time.Duration
}

func (r PublishResult) OK() bool { return r.Err == nil }

// PublishTask is the handle for an in-flight publish. It completes exactly once.
type PublishTask struct {
	once   sync.Once
	done   chan struct{}
	result PublishResult
}

func NewPublishTask() *PublishTask {
	return &PublishTask{done: make(chan struct{})}
}

// CompletedTask returns a task that is already done with res.
func CompletedTask(res PublishResult) *PublishTask {
	t := NewPublishTask()
	t.Complete(res)
	return t
}

// Complete records res and releases waiters. Later calls are ignored.
func (t *PublishTask) Complete(res PublishResult) {
	t.once.Do(func() {
		t.result = res
		close(t.done)
	})
}

func (t *PublishTask) Done() <-chan struct{} { return t.done }

// Result returns the result and whether the task has completed.
func (t *PublishTask) Result() (PublishResult, bool) {
	select {
	case <-t.done:
		return t.result, true
	default:
		return PublishResult{}, false
	}
}

// Wait blocks until the task completes or ctx is done.
func (t *PublishTask) Wait(ctx context.Context) (PublishResult, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return PublishResult{}, ctx.Err()
	}
}
