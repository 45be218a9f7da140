package ports

import "context"

// StreamHandler receives the messages of one run, in arrival order.
type StreamHandler interface {
	// OnMessage is called once per inbound message.
	OnMessage(raw []byte)

	// OnClose is called exactly once when the stream ends, for any reason.
	OnClose()
}

// EventSource opens an execution stream for a question.
// Stream blocks until the stream ends or ctx is canceled, and always calls h.OnClose before returning.
type EventSource interface {
	Stream(ctx context.Context, question string, h StreamHandler) error
}
