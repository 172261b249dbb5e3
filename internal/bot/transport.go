package bot

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"barberbot/internal/metrics"
)

// ErrDocumentsUnsupported is returned when the transport cannot send files.
var ErrDocumentsUnsupported = errors.New("transport cannot send documents")

// Message is one inbound chat message.
type Message struct {
	ID      string
	ChatID  string // where replies go
	Sender  string // sender identity, compared against the owner
	GroupID string // set for group messages
	Text    string
}

// IsGroup reports whether the message was posted in a group.
func (m Message) IsGroup() bool {
	return m.GroupID != ""
}

// Transport sends text to a chat.
type Transport interface {
	SendText(ctx context.Context, to, text string) error
}

// DocumentSender is implemented by transports that can deliver files.
type DocumentSender interface {
	SendDocument(ctx context.Context, to, name string, data []byte, caption string) error
}

// RateLimitedTransport throttles outbound sends.
type RateLimitedTransport struct {
	next    Transport
	limiter *rate.Limiter
}

// NewRateLimitedTransport wraps next with a token bucket of rps and burst.
func NewRateLimitedTransport(next Transport, rps float64, burst int) *RateLimitedTransport {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedTransport{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *RateLimitedTransport) SendText(ctx context.Context, to, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.IncOutbound("throttled")
		return fmt.Errorf("outbound limiter: %w", err)
	}
	if err := t.next.SendText(ctx, to, text); err != nil {
		metrics.IncOutbound("failed")
		return err
	}
	metrics.IncOutbound("sent")
	return nil
}

func (t *RateLimitedTransport) SendDocument(ctx context.Context, to, name string, data []byte, caption string) error {
	docs, ok := t.next.(DocumentSender)
	if !ok {
		return ErrDocumentsUnsupported
	}
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.IncOutbound("throttled")
		return fmt.Errorf("outbound limiter: %w", err)
	}
	if err := docs.SendDocument(ctx, to, name, data, caption); err != nil {
		metrics.IncOutbound("failed")
		return err
	}
	metrics.IncOutbound("sent")
	return nil
}
