package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrQueueFull is returned when the publisher cannot keep up.
var ErrQueueFull = errors.New("event queue full")

// MessageWriter is the part of kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer for topic keyed by hash so events of one
// entity stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// KafkaPublisher forwards bus events to a broker. Handle only enqueues, so a
// slow broker never stalls message handling.
type KafkaPublisher struct {
	writer  MessageWriter
	queue   chan Event
	logger  *zerolog.Logger
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher with a bounded queue.
func NewKafkaPublisher(writer MessageWriter, queueSize int, logger *zerolog.Logger) *KafkaPublisher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &KafkaPublisher{
		writer:  writer,
		queue:   make(chan Event, queueSize),
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Handle is an EventHandler.
func (p *KafkaPublisher) Handle(event Event) error {
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run writes queued events until ctx ends, then flushes what is left and
// closes the writer.
func (p *KafkaPublisher) Run(ctx context.Context) {
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.logger.Error().Err(err).Msg("close kafka writer")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case ev := <-p.queue:
			p.write(context.Background(), ev)
		}
	}
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case ev := <-p.queue:
			p.write(context.Background(), ev)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) write(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(ev.Key),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("event_type", ev.Type).Str("key", ev.Key).Msg("publish event failed")
	}
}
