package llm

import "context"

// Stream is a lazy sequence of fragments from one model turn. Recv returns
// io.EOF when the model signals end of turn; any other error terminates
// the turn and is reported to the caller verbatim.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// Provider defines the interface for interacting with LLM backends.
// Implementations handle protocol-specific details such as request
// formatting, authentication, and delta demultiplexing.
type Provider interface {
	// Complete sends a chat completion request and returns the full response.
	Complete(ctx context.Context, messages []Message, tools []Tool) (*Response, error)

	// Stream opens a streaming chat completion. The returned Stream must be
	// drained or closed by the caller.
	Stream(ctx context.Context, messages []Message, tools []Tool) (Stream, error)
}

// Config holds common configuration for LLM providers.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int
	Temperature     float32
	ReasoningEffort string
}
