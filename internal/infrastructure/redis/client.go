package redis

import (
	"context"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tenantcare/auth-service/internal/domain"
)

const defaultPrefix = "auth"

type Client struct {
	rdb    *goredis.Client
	prefix string
}

type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "auth" -> "auth:rl:...".
	Prefix string
}

func New(opts Options) *Client {
	prefix := strings.TrimSuffix(opts.Prefix, ":")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: prefix,
	}
}

func (c *Client) Ping(ctx context.Context) error {
	// short ping timeout is good in bootstrap
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return domain.ErrRedisUnavailable(err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key joins parts under the client prefix.
func (c *Client) Key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}
