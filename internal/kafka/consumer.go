package kafka

import (
	"context"
	"errors"
	"fmt"

	"sooicy-orders/internal/logger"

	"github.com/segmentio/kafka-go"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer reads every listed topic as member of groupID.
func NewConsumer(brokers, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Start hands each message to handler until ctx is cancelled. Handler errors
// are logged and the message is skipped.
func (c *Consumer) Start(ctx context.Context, handler func(kafka.Message) error) error {
	c.Logger.Info("KAFKA", "Consumer started")
	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.Logger.Info("KAFKA", "Consumer stopped")
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		if err := handler(msg); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Skipping message %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.Reader.Close()
}
