package ari

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tksa/ai-receptionist/internal/observability"
)

// reconnectDelay is the fixed backoff between WebSocket reconnect attempts.
// spec.md §4.5/§5 mandates a fixed 5-second delay, forever. This repository
// has no reconnect helper in internal/resilience; that package serves only
// the AI-client retry path, which does want exponential backoff.
const reconnectDelay = 5 * time.Second

// Handler is invoked for every decoded event. It must not block for long —
// the subscriber is a single dedicated goroutine and a slow handler stalls
// delivery of subsequent events.
type Handler func(Event)

// Subscriber owns the event-stream WebSocket connection lifecycle: dial,
// read loop, and supervised reconnect. Reconnection never touches the
// engine's session table — in-flight sessions survive a reconnect because
// they live in the engine, not in the subscriber.
type Subscriber struct {
	url     string
	handler Handler
}

// NewSubscriber creates a Subscriber against the bus's event-stream url.
func NewSubscriber(url string, handler Handler) *Subscriber {
	return &Subscriber{url: url, handler: handler}
}

// Run connects and reads events until ctx is cancelled, reconnecting with a
// fixed 5-second delay on any disconnect or error.
func (s *Subscriber) Run(ctx context.Context) {
	logger := observability.GetLogger()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.runOnce(ctx); err != nil {
			logger.Error().Err(err).Msg("ari event stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// runOnce dials the event stream and reads frames until the connection
// fails or ctx is cancelled.
func (s *Subscriber) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	observability.GetLogger().Info().Str("url", s.url).Msg("ari event stream connected")

	// Close the connection promptly on context cancellation: ReadMessage
	// has no context support, so this goroutine is how we make the read
	// loop responsive to shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		event, err := DecodeEvent(message)
		if err != nil {
			observability.GetLogger().Warn().Err(err).Msg("ari event decode failed, dropping frame")
			continue
		}
		if event == nil {
			continue // unknown type or malformed target_uri (P8)
		}

		s.handler(event)
	}
}
