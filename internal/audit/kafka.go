package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const kafkaFlushTimeout = 5 * time.Second

//go:generate mockgen -source=kafka.go -destination=mocks/mocks.go -package=mocks

// Producer is the slice of *kgo.Client the Kafka sink uses.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaSink publishes events as JSON records keyed by cart ID, so every
// event for one cart lands on the same partition. Produce is asynchronous;
// delivery failures are logged from the promise.
type KafkaSink struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	metrics  *Metrics
}

type KafkaOption func(*KafkaSink)

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(s *KafkaSink) {
		s.logger = logger
	}
}

func WithKafkaMetrics(m *Metrics) KafkaOption {
	return func(s *KafkaSink) {
		s.metrics = m
	}
}

// NewKafkaSink connects a franz-go producer to the given seed brokers.
func NewKafkaSink(brokers []string, topic string, opts ...KafkaOption) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka audit sink requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka audit sink requires a topic")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RecordDeliveryTimeout(30*time.Second),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return NewKafkaSinkWithProducer(client, topic, opts...), nil
}

// NewKafkaSinkWithProducer wraps an existing producer.
func NewKafkaSinkWithProducer(producer Producer, topic string, opts ...KafkaOption) *KafkaSink {
	s := &KafkaSink{
		producer: producer,
		topic:    topic,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.CartID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}

	// The record outlives the request that produced it.
	s.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err == nil {
			return
		}
		s.metrics.IncFailures()
		s.logger.Error("audit record delivery failed",
			"topic", r.Topic,
			"action", event.Action,
			"cart_id", event.CartID,
			"error", err,
		)
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (s *KafkaSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), kafkaFlushTimeout)
	defer cancel()
	err := s.producer.Flush(ctx)
	s.producer.Close()
	if err != nil {
		return fmt.Errorf("flush audit records: %w", err)
	}
	return nil
}
