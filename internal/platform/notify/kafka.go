package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/phrazzld/audiobrief/internal/events"
)

const flushTimeoutMs = 5000

// producer is the subset of *kafka.Producer the notifier uses.
type producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// KafkaNotifier publishes every task event as JSON, keyed by fingerprint so
// all events for one query land on the same partition.
type KafkaNotifier struct {
	producer producer
	topic    string
	logger   *slog.Logger
}

// NewKafkaNotifier creates an idempotent producer for brokers.
func NewKafkaNotifier(brokers, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"enable.idempotence": true,
		"acks":               "all",
		"linger.ms":          5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaNotifier(p, topic, logger), nil
}

func newKafkaNotifier(p producer, topic string, logger *slog.Logger) *KafkaNotifier {
	n := &KafkaNotifier{
		producer: p,
		topic:    topic,
		logger:   logger.With(slog.String("component", "kafka_notifier"), slog.String("topic", topic)),
	}
	go n.drain()
	return n
}

// HandleEvent implements events.EventHandler. Delivery is asynchronous;
// failures after enqueueing are only logged.
func (n *KafkaNotifier) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode task event: %w", err)
	}

	err = n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Fingerprint),
		Value:          payload,
		Headers:        []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("kafka produce task %s: %w", event.TaskID, err)
	}
	return nil
}

// Close flushes outstanding messages and closes the producer.
func (n *KafkaNotifier) Close() {
	if left := n.producer.Flush(flushTimeoutMs); left > 0 {
		n.logger.Warn("kafka messages left unflushed", slog.Int("count", left))
	}
	n.producer.Close()
}

func (n *KafkaNotifier) drain() {
	for e := range n.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				n.logger.Error("delivery failed", slog.String("error", ev.TopicPartition.Error.Error()))
			} else {
				n.logger.Debug("message delivered",
					slog.Int("partition", int(ev.TopicPartition.Partition)),
					slog.Int64("offset", int64(ev.TopicPartition.Offset)))
			}
		case kafka.Error:
			n.logger.Error("producer error", slog.String("error", ev.Error()))
		}
	}
}
