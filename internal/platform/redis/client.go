// Package redis connects the shared adapter-result cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"verity/internal/platform/config"
)

// Client is a go-redis client bound to the process key prefix.
type Client struct {
	*redis.Client
	prefix string
}

// New dials the URL in cfg and verifies the server answers. It returns a nil
// client without error when no URL is configured; callers then keep the cache
// in process.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	c := &Client{Client: redis.NewClient(opts), prefix: cfg.KeyPrefix}
	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout+time.Second)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return c, nil
}

// Prefix is the key namespace shared by every cache entry this process writes.
func (c *Client) Prefix() string {
	return c.prefix
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
