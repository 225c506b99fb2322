package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes deliveries as JSON messages keyed by workflow and node.
type KafkaSink struct {
	writer MessageWriter
	topic  string
	logger zerolog.Logger
}

// KafkaConfig configures NewKafkaSink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaSink creates a sink backed by a synchronous kafka.Writer.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
	}
	return NewKafkaSinkWithWriter(writer, cfg.Topic), nil
}

// NewKafkaSinkWithWriter wraps an existing writer.
func NewKafkaSinkWithWriter(w MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{
		writer: w,
		topic:  topic,
		logger: log.With().Str("component", "events").Str("topic", topic).Logger(),
	}
}

// Publish writes one message. The key keeps deliveries of one node on one
// partition, so consumers see them in order.
func (s *KafkaSink) Publish(ctx context.Context, d Delivery) error {
	value, err := json.Marshal(d)
	if err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal delivery: %w", err)
	}

	start := time.Now()
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(d.WorkflowID + ":" + d.NodeID),
		Value: value,
		Time:  d.ReceivedAt,
		Headers: []kafka.Header{
			{Key: "delivery_id", Value: []byte(d.ID.String())},
			{Key: "event", Value: []byte(d.Event)},
		},
	})
	elapsed := time.Since(start)

	if err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("delivery_id", d.ID.String()).Dur("elapsed", elapsed).Msg("Failed to publish delivery")
		return fmt.Errorf("publish delivery to topic %s: %w", s.topic, err)
	}

	publishedTotal.WithLabelValues("ok").Inc()
	s.logger.Debug().Str("delivery_id", d.ID.String()).Dur("elapsed", elapsed).Msg("Delivery published")
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	s.logger.Info().Msg("Closing Kafka sink")
	return s.writer.Close()
}
