// internal/types/models.go
package types

import "encoding/json"

// EventType classifies an outbound notification on a session's stream.
type EventType string

const (
	EventLog       EventType = "log"
	EventReasoning EventType = "reasoning"
	EventChunk     EventType = "chunk"
	EventToolCall  EventType = "tool_call"
	EventPreview   EventType = "preview"
	EventError     EventType = "error"
	EventDone      EventType = "done"
)

// Event is the wire shape delivered to subscribers. Payload is free text
// for log/reasoning/chunk/error/done and a structured object for
// tool_call and preview.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TextEvent builds an Event whose payload is a JSON string.
func TextEvent(t EventType, text string) Event {
	payload, _ := json.Marshal(text)
	return Event{Type: t, Payload: payload}
}

// ObjectEvent builds an Event whose payload is the JSON encoding of v.
func ObjectEvent(t EventType, v any) Event {
	payload, _ := json.Marshal(v)
	return Event{Type: t, Payload: payload}
}

// ToolCall is one tool invocation requested by the model, as persisted in
// history and as carried on tool_call event payloads.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"args"`
}

// Turn is one history entry. Insertion order is conversational order and
// is preserved verbatim when history is replayed to the model.
type Turn struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Dimensions is a widget's footprint in grid units, each in 1..4.
type Dimensions struct {
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Clamp forces both axes into the 1..4 range, defaulting zero values to
// the given fallback.
func (d Dimensions) Clamp(fallback int) Dimensions {
	clamp := func(n int) int {
		if n == 0 {
			n = fallback
		}
		if n < 1 {
			return 1
		}
		if n > 4 {
			return 4
		}
		return n
	}
	return Dimensions{Width: clamp(d.Width), Height: clamp(d.Height)}
}

// Manifest describes a generated widget to subscribers. Exactly one of
// Code or URL is authoritative per emission: the inline preview carries
// Code with a null URL, the post-build preview carries URL with a null
// Code, and clients prefer URL when present.
type Manifest struct {
	ID          WidgetID   `json:"id"`
	Title       string     `json:"title"`
	Dimensions  Dimensions `json:"dimensions"`
	Code        *string    `json:"code"`
	URL         *string    `json:"url"`
	ProjectPath string     `json:"projectPath"`
}

// WidgetMeta is the widget.json metadata file written to a workspace.
type WidgetMeta struct {
	Title  string `json:"title"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}
