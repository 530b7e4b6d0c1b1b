package notify

import (
	"context"
	"encoding/json"

	"github.com/andrej220/luauci/internal/lg"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
	Topic   string
}

// Producer publishes JSON-encoded payloads to a Kafka topic.
type Producer[T any] struct {
	writer *kafka.Writer
}

func NewProducer[T any](cfg Config) *Producer[T] {
	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer[T]{writer: w}
}

func (p *Producer[T]) Write(ctx context.Context, key string, payload T) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer[T]) Close() error {
	return p.writer.Close()
}

// KafkaNotifier publishes task events for CI dashboards. Publish failures
// are logged and dropped.
type KafkaNotifier struct {
	producer *Producer[TaskEvent]
	logger   lg.Logger
}

func NewKafkaNotifier(cfg Config, logger lg.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		producer: NewProducer[TaskEvent](cfg),
		logger:   logger,
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev TaskEvent) {
	if err := n.producer.Write(ctx, ev.RunID, ev); err != nil {
		n.logger.Warn("failed to publish task event", lg.Err(err))
	}
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
