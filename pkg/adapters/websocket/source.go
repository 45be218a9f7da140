// Package websocket implements the inbound execution stream over a WebSocket connection.
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/runlens/internal/logging"
	"github.com/aretw0/runlens/pkg/ports"
	"github.com/gorilla/websocket"
)

// DefaultURL is the stream endpoint of a locally running backend.
const DefaultURL = "ws://localhost:8000/ws/run"

// handshake is the single outbound message of a stream.
type handshake struct {
	Question string `json:"question"`
}

// Source dials the backend, sends the question and relays every message.
// It never reconnects; a dropped connection ends the stream.
type Source struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

var _ ports.EventSource = (*Source)(nil)

// Option configures the Source.
type Option func(*Source)

// WithDialer replaces the default dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Source) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithHandshakeTimeout bounds connection establishment.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Source) {
		dialer := *s.dialer
		dialer.HandshakeTimeout = d
		s.dialer = &dialer
	}
}

// WithLogger configures a logger for the Source.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// New creates a Source for url.
func New(url string, opts ...Option) *Source {
	if url == "" {
		url = DefaultURL
	}
	s := &Source{
		url:    url,
		dialer: websocket.DefaultDialer,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream runs one execution stream. h.OnClose is always called before returning.
// A normal close by the server returns nil; cancellation returns ctx.Err().
func (s *Source) Stream(ctx context.Context, question string, h ports.StreamHandler) error {
	defer h.OnClose()

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(handshake{Question: question}); err != nil {
		return fmt.Errorf("write handshake: %w", err)
	}
	s.logger.Debug("Stream opened", "url", s.url)

	// Unblock ReadMessage on cancellation.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Stream closed by server")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		h.OnMessage(data)
	}
}
