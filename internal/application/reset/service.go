package reset

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tenantcare/auth-service/internal/domain"
)

const resetTokenBytes = 32

type Service struct {
	repos  Repos
	tx     TxRunner
	hasher PasswordHasher
	events EventDispatcher
	audit  AuditLogger

	now          func() time.Time
	tokenTTL     time.Duration
	resetBaseURL string // e.g. https://frontend/reset-password?token=
	topic        string
	source       string
}

type Config struct {
	TokenTTL     time.Duration
	ResetBaseURL string
	EventTopic   string
	EventSource  string
}

func NewService(
	repos Repos,
	tx TxRunner,
	hasher PasswordHasher,
	events EventDispatcher,
	cfg Config,
) *Service {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = domain.DefaultResetTokenTTL
	}
	topic := cfg.EventTopic
	if topic == "" {
		topic = DefaultEventTopic
	}
	source := cfg.EventSource
	if source == "" {
		source = DefaultEventSource
	}
	return &Service{
		repos:  repos,
		tx:     tx,
		hasher: hasher,
		events: events,
		audit:  nopAudit{},

		now:          func() time.Time { return time.Now().UTC() },
		tokenTTL:     ttl,
		resetBaseURL: cfg.ResetBaseURL,
		topic:        topic,
		source:       source,
	}
}

func (s *Service) WithAudit(a AuditLogger) *Service {
	if a != nil {
		s.audit = a
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Topic is the bus topic reset events are published on.
func (s *Service) Topic() string { return s.topic }

// RequestMeta carries the client details captured by the HTTP layer.
type RequestMeta struct {
	IP        string
	UserAgent string
	Origin    string
	Host      string
}

// ResetDomain is the host[:port] of the Origin header, or the Host header
// without its port.
func (m RequestMeta) ResetDomain() string {
	if m.Origin != "" {
		if u, err := url.Parse(m.Origin); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if m.Host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(m.Host); err == nil {
		return h
	}
	return strings.TrimSuffix(m.Host, ":")
}

func (s *Service) resetLink(token string) string {
	if s.resetBaseURL == "" {
		return token
	}
	return s.resetBaseURL + token
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type nopAudit struct{}

func (nopAudit) Activity(context.Context, domain.UserActivity) {}
