// Package kafka builds the franz-go producer used for lifecycle notifications.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"verity/internal/platform/config"
)

// Client wraps a franz-go client bound to one default topic.
type Client struct {
	*kgo.Client
	topic string
}

// New connects to the brokers. Returns nil if no brokers are configured.
func New(ctx context.Context, cfg config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProduceRequestTimeout(cfg.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := cl.Ping(ctx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	c := &Client{Client: cl, topic: cfg.Topic}
	if cfg.EnsureTopic {
		if err := c.EnsureTopic(ctx, cfg.Partitions, cfg.Replication); err != nil {
			cl.Close()
			return nil, err
		}
	}
	return c, nil
}

// Topic is the default produce topic.
func (c *Client) Topic() string {
	return c.topic
}

// EnsureTopic creates the default topic unless it already exists.
func (c *Client) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(c.Client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, c.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", c.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", c.topic, resp.Err)
	}
	return nil
}

// Health pings the cluster.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}
