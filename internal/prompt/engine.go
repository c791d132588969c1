// Package prompt turns session history into model input. History is
// replayed in full on every turn, without truncation or summarization;
// the engine only measures and warns when the replay outgrows the
// configured context budget.
package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/pkg/llm"
)

// Engine assembles model messages and accounts for their token cost.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// New creates an engine for the given model. maxTokens is the model's
// context window; reserve is held back for the response.
func New(model string, maxTokens, reserve int) (*Engine, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Engine{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

// CountTokens returns the token count for a string.
func (e *Engine) CountTokens(text string) int {
	return len(e.tokenizer.Encode(text, nil, nil))
}

// BuildMessages converts the system prompt plus the entire history into
// model messages, in conversational order. Only user and assistant turns
// are replayed; tool results live inside the turn that produced them and
// are not part of cross-turn context.
func (e *Engine) BuildMessages(sessionID types.SessionID, history []types.Turn, toolNames []string) []llm.Message {
	sys := systemPrompt
	if len(toolNames) > 0 {
		sys += fmt.Sprintf("\n\nAvailable tools: %s.", strings.Join(toolNames, ", "))
	}

	messages := make([]llm.Message, 0, 1+len(history))
	messages = append(messages, llm.Message{Role: "system", Content: sys})

	used := e.CountTokens(sys)
	for _, turn := range history {
		switch turn.Role {
		case "user":
			messages = append(messages, llm.Message{Role: "user", Content: turn.Content})
		case "assistant":
			msg := llm.Message{Role: "assistant", Content: turn.Content}
			for _, tc := range turn.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
					ID:        tc.ID,
					Name:      tc.Name,
					Arguments: tc.Arguments,
				})
				used += e.CountTokens(tc.Name) + e.CountTokens(string(tc.Arguments))
			}
			messages = append(messages, msg)
		default:
			continue
		}
		used += e.CountTokens(turn.Content)
	}

	budget := e.maxTokens - e.reserve
	if budget > 0 && used > budget {
		slog.Warn("prompt exceeds context budget",
			"session_id", string(sessionID),
			"tokens", used,
			"budget", budget,
		)
	} else {
		slog.Debug("prompt assembled",
			"session_id", string(sessionID),
			"tokens", used,
			"messages", len(messages),
		)
	}

	return messages
}
