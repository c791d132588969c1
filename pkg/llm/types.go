package llm

import "encoding/json"

// Message represents a chat message in a conversation. Tool-result
// messages carry the ID of the call they answer in ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a tool offered to the model, with a JSON Schema for its
// parameters.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FragmentKind tags the variants of a streamed Fragment.
type FragmentKind int

const (
	// FragmentReasoning is internal deliberation text. It is surfaced to
	// subscribers but never becomes part of the persisted assistant content.
	FragmentReasoning FragmentKind = iota
	// FragmentText is visible assistant text, accumulated into the final
	// persisted content.
	FragmentText
	// FragmentToolCallDelta is a partial tool-call argument chunk. Purely
	// informational; consumers act only on FragmentToolCallComplete.
	FragmentToolCallDelta
	// FragmentToolCallComplete carries a syntactically whole tool call.
	FragmentToolCallComplete
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentReasoning:
		return "reasoning"
	case FragmentText:
		return "text"
	case FragmentToolCallDelta:
		return "tool_call_delta"
	case FragmentToolCallComplete:
		return "tool_call_complete"
	default:
		return "unknown"
	}
}

// Fragment is one incremental unit of a streamed model response. The shape
// is decided once, here, at the adapter boundary: Text is set for
// Reasoning, Text and ToolCallDelta fragments; ToolCall is set only for
// ToolCallComplete fragments.
type Fragment struct {
	Kind     FragmentKind
	Text     string
	ToolCall *ToolCall
}

// Response represents a complete, non-streamed response.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Usage tracks token consumption for a request/response pair.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
