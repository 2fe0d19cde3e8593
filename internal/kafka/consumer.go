package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer relays tickets.issued events published by other instances, so every instance's
// admin stream sees every issuance.
type Consumer struct {
	reader MessageReader
	origin string
	log    *logger.Logger
}

// NewConsumer creates a Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID, origin string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, origin: origin, log: log}
}

// Start reads until ctx is cancelled and hands each foreign event to handler.
func (c *Consumer) Start(ctx context.Context, handler func(models.TicketsIssuedEvent)) {
	c.log.Info("KAFKA", "Tickets consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info("KAFKA", "Tickets consumer stopped")
				return
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if originOf(msg) == c.origin {
			continue
		}

		var event models.TicketsIssuedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.log.LogKafka("CONSUME", msg.Topic, event.Reference)
		handler(event)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func originOf(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == OriginHeader {
			return string(h.Value)
		}
	}
	return ""
}
