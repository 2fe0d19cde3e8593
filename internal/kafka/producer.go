package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// OriginHeader carries the publishing instance id so a consumer can skip its own messages.
const OriginHeader = "origin"

type Topics struct {
	TicketsIssued string
	PaymentStatus string
}

// Publisher announces booking outcomes. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishTicketsIssued(ctx context.Context, event models.TicketsIssuedEvent) error
	PublishPaymentStatus(ctx context.Context, event models.PaymentStatusEvent) error
	Close() error
}

// MessageWriter is the part of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics Topics
	Origin string
	log    *logger.Logger
}

var _ Publisher = (*Producer)(nil)

func NewProducer(brokers []string, topics Topics, origin string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Origin: origin, log: log}
}

// PublishTicketsIssued streams the issuance event, keyed by payment reference
func (p *Producer) PublishTicketsIssued(ctx context.Context, event models.TicketsIssuedEvent) error {
	return p.publish(ctx, p.Topics.TicketsIssued, event.Reference, event)
}

// PublishPaymentStatus streams a payment intent transition, keyed by payment reference
func (p *Producer) PublishPaymentStatus(ctx context.Context, event models.PaymentStatusEvent) error {
	return p.publish(ctx, p.Topics.PaymentStatus, event.Reference, event)
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	p.log.LogKafka("PUBLISH", topic, key)

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   msgBytes,
		Headers: []kafka.Header{{Key: OriginHeader, Value: []byte(p.Origin)}},
		Time:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// Noop drops every event. Used when Kafka is disabled.
type Noop struct {
	log *logger.Logger
}

var _ Publisher = Noop{}

func NewNoop(log *logger.Logger) Noop {
	return Noop{log: log}
}

func (n Noop) PublishTicketsIssued(_ context.Context, event models.TicketsIssuedEvent) error {
	n.log.Debug("KAFKA", fmt.Sprintf("disabled, dropping tickets issued event for %s", event.Reference))
	return nil
}

func (n Noop) PublishPaymentStatus(_ context.Context, event models.PaymentStatusEvent) error {
	n.log.Debug("KAFKA", fmt.Sprintf("disabled, dropping payment status %s for %s", event.Status, event.Reference))
	return nil
}

func (Noop) Close() error { return nil }
