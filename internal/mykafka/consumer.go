package mykafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes one message. A failed message is retried with backoff
// and its offset is committed only after the handler succeeds.
type Handler func(ctx context.Context, msg kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	handler Handler
	log     *slog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, groupID, topic string, h Handler, log *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  time.Second,
		}),
		handler: h,
		log:     log.With("component", "kafka_consumer", "topic", topic),
		backoff: time.Second,
	}
}

const maxBackoff = 30 * time.Second

// Run blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Warn("fetch_failed", "error", err)
			if !c.wait(ctx, c.backoff) {
				return nil
			}
			continue
		}

		if !c.handle(ctx, msg) {
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("commit_failed", "offset", msg.Offset, "error", err)
		}
	}
}

// handle retries msg until the handler succeeds. false means ctx ended first.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	delay := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, msg)
		if err == nil {
			return true
		}
		c.log.Error("handle_failed", "offset", msg.Offset, "partition", msg.Partition, "attempt", attempt, "error", err)
		if !c.wait(ctx, delay) {
			return false
		}
		delay = min(delay*2, maxBackoff)
	}
}

func (c *Consumer) wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
