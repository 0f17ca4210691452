package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tenantcare/auth-service/internal/domain"
)

// Atomic INCR + expire on first hit.
// returns: {count, ttl_ms}
var fixedWindowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`)

// FixedWindowLimiter counts hits per (scope, identity) in fixed windows.
// A nil client disables limiting (fail-open).
type FixedWindowLimiter struct {
	c   *Client
	now func() time.Time
}

func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	return &FixedWindowLimiter{c: c, now: time.Now}
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time     // window end (best-effort)
	Count      int
}

// Allow records one hit for identity under scope and reports whether it is
// within limit for the current window. limit <= 0 disables the check.
func (l *FixedWindowLimiter) Allow(ctx context.Context, scope, identity string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if l.c == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	key := l.c.Key("rl", scope, identity)
	res, err := fixedWindowScript.Run(ctx, l.c.rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return Decision{}, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit eval: %w", err))
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return Decision{}, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit eval: unexpected result %T", res))
	}
	count, ok1 := arr[0].(int64)
	ttlms, ok2 := arr[1].(int64)
	if !ok1 || !ok2 {
		return Decision{}, domain.ErrRedisUnavailable(fmt.Errorf("ratelimit eval: unexpected element types"))
	}

	ttl := time.Duration(ttlms) * time.Millisecond
	allowed := int(count) <= limit

	d := Decision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(0, limit-int(count)),
		Count:     int(count),
		ResetAt:   l.now().Add(ttl),
	}
	if !allowed {
		if ttl > 0 {
			d.RetryAfter = ttl
		} else {
			d.RetryAfter = window
		}
	}
	return d, nil
}
