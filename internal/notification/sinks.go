package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the slice of a franz-go client the Kafka sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink writes events as JSON, keyed by application ID so one
// application's events stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Send(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(e.ApplicationID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	if err := s.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", e.Type, err)
	}
	return nil
}

// LogSink writes events to the structured log. Used when no broker is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "lifecycle notification",
		"event", string(e.Type),
		"application_id", e.ApplicationID,
		"applicant_id", e.ApplicantID,
		"status", e.Status,
		"reason", e.Reason,
	)
	return nil
}

// MemorySink records events in delivery order.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes subsequent sends return err; nil restores delivery.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySink) Send(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Types lists delivered event types in order.
func (s *MemorySink) Types() []EventType {
	events := s.Events()
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
