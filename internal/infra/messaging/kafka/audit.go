package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/automaton-sar/internal/domain/audit"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic carries every audit event; consumers filter on the event_type header.
const DefaultTopic = "sar.audit.events"

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AuditPublisher streams audit events. Messages are keyed by subject so all
// events of one case land on one partition in order.
type AuditPublisher struct {
	w MessageWriter
}

// NewWriter builds a synchronous writer that waits for all in-sync replicas.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

func NewAuditPublisher(w MessageWriter) *AuditPublisher {
	return &AuditPublisher{w: w}
}

func (p *AuditPublisher) Record(ctx context.Context, e *domain.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event %s: %w", e.ID, err)
	}
	key := e.SubjectID
	if key == "" {
		key = e.ID
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "tenant_id", Value: []byte(e.TenantID)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event %s: %w", e.ID, err)
	}
	return nil
}

func (p *AuditPublisher) Close() error { return p.w.Close() }
