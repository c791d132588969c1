package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/user/widgetsmith/internal/prompt"
	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/pkg/llm"
)

// TurnResult is the outcome of one committed generation turn.
type TurnResult struct {
	Content   string
	ToolCalls []types.ToolCall
}

// turnRunner drives a single model turn: it streams fragments, dispatches
// tool calls across rounds, and commits the user and assistant entries to
// history together once the turn completes. A turn that errors out commits
// nothing, so history never holds a user entry without its answer.
type turnRunner struct {
	session   *state.Session
	engine    *prompt.Engine
	provider  llm.Provider
	tools     *Registry
	emit      func(types.Event)
	maxRounds int
}

func (t *turnRunner) run(ctx context.Context, userPrompt string) (*TurnResult, error) {
	base := t.engine.BuildMessages(t.session.ID, t.session.History(), t.tools.Names())
	messages := append(base, llm.Message{Role: "user", Content: userPrompt})
	llmTools := t.tools.AsLLMTools()

	var allContent string
	var allCalls []types.ToolCall

	for round := 0; round < t.maxRounds; round++ {
		text, calls, err := t.streamRound(ctx, messages, llmTools)
		if err != nil {
			return nil, err
		}

		allContent += text

		if len(calls) == 0 {
			t.commit(userPrompt, allContent, allCalls)
			return &TurnResult{Content: allContent, ToolCalls: allCalls}, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   text,
			ToolCalls: calls,
		})
		for _, call := range calls {
			allCalls = append(allCalls, types.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    t.dispatch(ctx, call),
				ToolCallID: call.ID,
			})
		}
	}

	slog.Warn("tool round limit reached",
		"session_id", string(t.session.ID),
		"rounds", t.maxRounds,
	)
	t.emit(types.TextEvent(types.EventLog, fmt.Sprintf("Stopping after %d tool rounds.", t.maxRounds)))
	t.commit(userPrompt, allContent, allCalls)
	return &TurnResult{Content: allContent, ToolCalls: allCalls}, nil
}

// streamRound drains one model response, demultiplexing fragments into
// events as they arrive. A mid-stream error aborts the whole turn.
func (t *turnRunner) streamRound(ctx context.Context, messages []llm.Message, llmTools []llm.Tool) (string, []llm.ToolCall, error) {
	stream, err := t.provider.Stream(ctx, messages, llmTools)
	if err != nil {
		return "", nil, fmt.Errorf("open model stream: %w", err)
	}
	defer stream.Close()

	var text string
	var calls []llm.ToolCall

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return text, calls, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("model stream: %w", err)
		}

		switch frag.Kind {
		case llm.FragmentReasoning:
			t.emit(types.TextEvent(types.EventReasoning, frag.Text))
		case llm.FragmentText:
			text += frag.Text
			t.emit(types.TextEvent(types.EventChunk, frag.Text))
		case llm.FragmentToolCallComplete:
			calls = append(calls, *frag.ToolCall)
		case llm.FragmentToolCallDelta:
			// Partial arguments; the complete call follows.
		}
	}
}

// dispatch executes one tool call and returns its result text. Failures
// come back as text too, so the model can read the error and correct
// itself on the next round instead of the turn dying.
func (t *turnRunner) dispatch(ctx context.Context, call llm.ToolCall) string {
	t.emit(types.ObjectEvent(types.EventToolCall, types.ToolCall{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: call.Arguments,
	}))

	tool, ok := t.tools.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}

	slog.Debug("executing tool", "session_id", string(t.session.ID), "tool", call.Name)
	result, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		slog.Warn("tool execution failed",
			"session_id", string(t.session.ID),
			"tool", call.Name,
			"error", err,
		)
		return fmt.Sprintf("Error: %v", err)
	}
	return result
}

func (t *turnRunner) commit(userPrompt, content string, calls []types.ToolCall) {
	t.session.Append(
		types.Turn{Role: "user", Content: userPrompt},
		types.Turn{Role: "assistant", Content: content, ToolCalls: calls},
	)
}
