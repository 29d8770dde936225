// Package publish buffers fills and bar closes during a replay and ships
// them to Kafka once playback is over.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tickbacktest/types"
)

var ErrClosed = errors.New("publisher closed")

const defaultBatchSize = 500

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config names the brokers and topics. An empty topic disables that stream.
type Config struct {
	Brokers   []string
	FillTopic string
	BarTopic  string
	RunID     string
}

// FillEvent is the message body for one execution.
type FillEvent struct {
	RunID string      `json:"runId,omitempty"`
	Trade types.Trade `json:"trade"`
	Order types.Order `json:"order"`
}

// BarEvent is the message body for one closed bar.
type BarEvent struct {
	RunID    string    `json:"runId,omitempty"`
	Interval string    `json:"interval"`
	Bar      types.Bar `json:"bar"`
}

type Publisher struct {
	cfg       Config
	writer    messageWriter
	log       *zap.Logger
	batchSize int

	pending []kafka.Message
	dropped int
	sent    int
	closed  bool
}

type Option func(*Publisher)

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func withWriter(w messageWriter) Option {
	return func(p *Publisher) {
		p.writer = w
	}
}

// NewPublisher builds a publisher over a kafka.Writer for cfg.Brokers.
// Messages carry their own topic so one writer serves both streams.
func NewPublisher(cfg Config, log *zap.Logger, opts ...Option) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Publisher{
		cfg:       cfg,
		log:       log.Named("publish"),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		}
	}
	return p
}

func (p *Publisher) PublishFill(trade types.Trade, order types.Order) {
	if p.cfg.FillTopic == "" {
		return
	}
	p.enqueue(p.cfg.FillTopic, trade.Symbol, FillEvent{RunID: p.cfg.RunID, Trade: trade, Order: order})
}

func (p *Publisher) PublishBar(bar types.Bar) {
	if p.cfg.BarTopic == "" {
		return
	}
	p.enqueue(p.cfg.BarTopic, bar.Symbol, BarEvent{RunID: p.cfg.RunID, Interval: bar.Interval.String(), Bar: bar})
}

func (p *Publisher) enqueue(topic, key string, event any) {
	if p.closed {
		p.dropped++
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.dropped++
		p.log.Error("encode event", zap.String("topic", topic), zap.Error(err))
		return
	}
	p.pending = append(p.pending, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

// Pending is the number of buffered messages not yet written.
func (p *Publisher) Pending() int {
	return len(p.pending)
}

func (p *Publisher) Sent() int {
	return p.sent
}

func (p *Publisher) Dropped() int {
	return p.dropped
}

// Flush writes buffered messages in batches. Messages of a failed batch and
// everything after it stay buffered for the next Flush.
func (p *Publisher) Flush(ctx context.Context) error {
	if p.closed {
		return ErrClosed
	}
	for len(p.pending) > 0 {
		n := min(p.batchSize, len(p.pending))
		if err := p.writer.WriteMessages(ctx, p.pending[:n]...); err != nil {
			p.log.Error("publish batch failed",
				zap.Int("batch", n),
				zap.Int("pending", len(p.pending)),
				zap.Error(err))
			return fmt.Errorf("publish: %w", err)
		}
		p.sent += n
		p.pending = p.pending[n:]
	}
	p.log.Info("published events", zap.Int("sent", p.sent))
	return nil
}

func (p *Publisher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if len(p.pending) > 0 {
		p.log.Warn("closing with unpublished events", zap.Int("pending", len(p.pending)))
	}
	return p.writer.Close()
}
