package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/vidpipe/logger"
)

// Client wraps a go-redis client.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a client. It does not dial; call Ping to verify connectivity.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		TLSConfig:    tlsCfg,
	})

	log.Debug("Redis client created", map[string]interface{}{
		"addr":      cfg.Addr,
		"db":        cfg.DB,
		"pool_size": cfg.PoolSize,
		"tls":       tlsCfg != nil,
	})
	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// PushJSON appends v, JSON-encoded, to the head of list key.
func (c *Client) PushJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: encoding %s entry: %w", key, err)
	}
	return c.rdb.LPush(ctx, key, data).Err()
}

// PopJSON waits up to timeout for an entry at the tail of list key and
// decodes it into v. It reports false when the wait timed out.
func (c *Client) PopJSON(ctx context.Context, key string, timeout time.Duration, v any) (bool, error) {
	res, err := c.rdb.BRPop(ctx, timeout, key).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return false, fmt.Errorf("redis: unexpected BRPOP reply %v", res)
	}
	if err := json.Unmarshal([]byte(res[1]), v); err != nil {
		return false, fmt.Errorf("redis: decoding %s entry: %w", key, err)
	}
	return true, nil
}

// Len returns the length of list key.
func (c *Client) Len(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

// PublishJSON publishes v, JSON-encoded, on channel.
func (c *Client) PublishJSON(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: encoding %s message: %w", channel, err)
	}
	return c.rdb.Publish(ctx, channel, data).Err()
}

// Subscribe listens on channels and waits for the server to confirm.
// The caller closes the returned PubSub.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error) {
	ps := c.rdb.Subscribe(ctx, channels...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribing to %v: %w", channels, err)
	}
	return ps, nil
}

// Close closes the connection pool. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.log.Info("Closing Redis connection")
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
