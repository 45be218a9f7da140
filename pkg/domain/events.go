package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind defines the category of a stream event.
type EventKind string

const (
	EventChainStart      EventKind = "on_chain_start"
	EventChainEnd        EventKind = "on_chain_end"
	EventNodeStart       EventKind = "on_node_start"
	EventNodeEnd         EventKind = "on_node_end"
	EventChatModelStart  EventKind = "on_chat_model_start"
	EventChatModelStream EventKind = "on_chat_model_stream"
	EventChatModelEnd    EventKind = "on_chat_model_end"
	EventToolStart       EventKind = "on_tool_start"
	EventToolEnd         EventKind = "on_tool_end"
)

// MetadataNodeKey is the metadata field carrying the graph node that emitted an event.
const MetadataNodeKey = "langgraph_node"

// Event is one message from the execution stream.
// Payload fields are kept opaque; only a few consumers look inside Data.
type Event struct {
	RunID         string         `json:"run_id,omitempty"`
	Kind          EventKind      `json:"event"`
	Name          string         `json:"name,omitempty"`
	Data          any            `json:"data,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     *float64       `json:"ts,omitempty"`
	StepIndex     *int           `json:"step_index,omitempty"`
	StateSnapshot map[string]any `json:"state_snapshot,omitempty"`
}

// DecodeEvent parses a single wire message.
func DecodeEvent(raw []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if e.Kind == "" {
		return Event{}, fmt.Errorf("%w: missing event kind", ErrMalformedEvent)
	}
	return e, nil
}

// NodeHint resolves the node an event refers to: metadata first, then the event name.
func (e Event) NodeHint() string {
	if e.Metadata != nil {
		if n, ok := e.Metadata[MetadataNodeKey].(string); ok && n != "" {
			return n
		}
	}
	return e.Name
}

// IsStart reports whether the event opens a chain or node.
func (e Event) IsStart() bool {
	return e.Kind == EventChainStart || e.Kind == EventNodeStart
}

// IsEnd reports whether the event closes a chain or node.
func (e Event) IsEnd() bool {
	return e.Kind == EventChainEnd || e.Kind == EventNodeEnd
}

// IsCritical reports whether the event must bypass batching.
// Lifecycle events and anything carrying a state snapshot are critical.
func (e Event) IsCritical() bool {
	return e.StateSnapshot != nil || e.IsStart() || e.IsEnd()
}

// DataField returns a top-level field of Data when Data is an object.
func (e Event) DataField(key string) any {
	m, ok := e.Data.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

// Ptr returns a pointer to v. Handy for the optional wire fields.
func Ptr[T any](v T) *T {
	return &v
}
