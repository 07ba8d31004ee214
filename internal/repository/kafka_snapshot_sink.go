package repository

import (
	"context"
	"strconv"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	pkgkafka "CoinPulse/pkg/kafka"
)

// Publisher is the part of pkg/kafka.Producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

var _ Publisher = (*pkgkafka.Producer)(nil)

// KafkaSnapshotSink forwards stored snapshots to a topic, keyed by unix milliseconds.
// The producer is owned and closed by the caller.
type KafkaSnapshotSink struct {
	producer Publisher
	topic    string
}

// NewKafkaSnapshotSink creates Kafka snapshot sink.
func NewKafkaSnapshotSink(producer Publisher, topic string) *KafkaSnapshotSink {
	return &KafkaSnapshotSink{producer: producer, topic: topic}
}

var _ repository.SnapshotSink = (*KafkaSnapshotSink)(nil)

func (k *KafkaSnapshotSink) Name() string { return "kafka" }

func (k *KafkaSnapshotSink) OnSnapshot(ctx context.Context, s *models.Snapshot) error {
	key := []byte(strconv.FormatInt(s.Timestamp.UnixMilli(), 10))
	return k.producer.Publish(ctx, k.topic, key, s)
}
