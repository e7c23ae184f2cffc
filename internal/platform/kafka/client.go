// Package kafka builds the franz-go client used for visit events.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"blackhole/internal/platform/config"
)

const (
	// Visit events are best effort; a record that cannot be delivered in
	// this window is dropped and logged.
	deliveryTimeout    = 30 * time.Second
	maxBufferedRecords = 10000
)

// New returns a producer client for cfg, or nil when no brokers are set.
// The client is pinged once so a bad address fails at boot.
func New(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*kgo.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
		kgo.ProducerLinger(0),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
		kgo.MaxBufferedRecords(maxBufferedRecords),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	logger.InfoContext(ctx, "kafka producer ready", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return client, nil
}
