// Package openai implements llm.Provider for OpenAI-compatible chat APIs,
// including DeepSeek/GLM style endpoints that stream reasoning_content.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/user/widgetsmith/pkg/llm"
)

// Client implements the llm.Provider interface on top of go-openai.
type Client struct {
	config *llm.Config
	client *goopenai.Client
}

// New creates a client for the endpoint named in config. An empty BaseURL
// targets api.openai.com.
func New(config *llm.Config) *Client {
	cc := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &Client{
		config: config,
		client: goopenai.NewClientWithConfig(cc),
	}
}

func (c *Client) buildRequest(messages []llm.Message, tools []llm.Tool) goopenai.ChatCompletionRequest {
	reqMessages := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := goopenai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		reqMessages = append(reqMessages, m)
	}

	req := goopenai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: reqMessages,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if c.config.Temperature != 0 {
		req.Temperature = c.config.Temperature
	}
	if c.config.ReasoningEffort != "" {
		req.ReasoningEffort = c.config.ReasoningEffort
	}
	return req
}

// Complete sends a chat completion request and returns the full response.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, tools))
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	out := &llm.Response{
		Content: choice.Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// Stream opens a streaming chat completion and returns a fragment stream.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, tools []llm.Tool) (llm.Stream, error) {
	req := c.buildRequest(messages, tools)
	req.Stream = true

	inner, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &chatStream{inner: inner, acc: newToolCallAccumulator()}, nil
}

// chatStream adapts go-openai's delta stream into the llm.Fragment tagged
// union. One provider chunk may expand into several fragments, so decoded
// fragments are queued and handed out one per Recv.
type chatStream struct {
	inner   *goopenai.ChatCompletionStream
	acc     *toolCallAccumulator
	pending []llm.Fragment
	done    bool
}

func (s *chatStream) Recv() (llm.Fragment, error) {
	for {
		if len(s.pending) > 0 {
			frag := s.pending[0]
			s.pending = s.pending[1:]
			return frag, nil
		}
		if s.done {
			return llm.Fragment{}, io.EOF
		}

		resp, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			// Flush any tool calls still buffered when the provider omits
			// an explicit tool_calls finish reason.
			s.pending = append(s.pending, s.acc.flush()...)
			s.done = true
			continue
		}
		if err != nil {
			return llm.Fragment{}, fmt.Errorf("recv stream: %w", err)
		}
		s.pending = append(s.pending, s.convert(resp)...)
	}
}

func (s *chatStream) Close() error {
	return s.inner.Close()
}

func (s *chatStream) convert(resp goopenai.ChatCompletionStreamResponse) []llm.Fragment {
	if len(resp.Choices) == 0 {
		return nil
	}
	choice := resp.Choices[0]
	delta := choice.Delta

	var frags []llm.Fragment
	if delta.ReasoningContent != "" {
		frags = append(frags, llm.Fragment{Kind: llm.FragmentReasoning, Text: delta.ReasoningContent})
	}
	if delta.Content != "" {
		frags = append(frags, llm.Fragment{Kind: llm.FragmentText, Text: delta.Content})
	}
	for _, tc := range delta.ToolCalls {
		s.acc.add(tc)
		frags = append(frags, llm.Fragment{Kind: llm.FragmentToolCallDelta, Text: tc.Function.Arguments})
	}
	if choice.FinishReason == goopenai.FinishReasonToolCalls {
		frags = append(frags, s.acc.flush()...)
	}
	return frags
}

// toolCallAccumulator reassembles tool calls from indexed argument deltas.
type toolCallAccumulator struct {
	order []int
	calls map[int]*partialCall
}

type partialCall struct {
	id   string
	name string
	args []byte
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*partialCall)}
}

func (a *toolCallAccumulator) add(delta goopenai.ToolCall) {
	idx := 0
	if delta.Index != nil {
		idx = *delta.Index
	}
	call, ok := a.calls[idx]
	if !ok {
		call = &partialCall{}
		a.calls[idx] = call
		a.order = append(a.order, idx)
	}
	if delta.ID != "" {
		call.id = delta.ID
	}
	if delta.Function.Name != "" {
		call.name = delta.Function.Name
	}
	call.args = append(call.args, delta.Function.Arguments...)
}

// flush emits one ToolCallComplete fragment per accumulated call, in the
// order the calls first appeared, and resets the accumulator.
func (a *toolCallAccumulator) flush() []llm.Fragment {
	var frags []llm.Fragment
	for _, idx := range a.order {
		call := a.calls[idx]
		if call.name == "" {
			continue
		}
		args := call.args
		if len(args) == 0 {
			args = []byte("{}")
		}
		frags = append(frags, llm.Fragment{
			Kind: llm.FragmentToolCallComplete,
			ToolCall: &llm.ToolCall{
				ID:        call.id,
				Name:      call.name,
				Arguments: json.RawMessage(args),
			},
		})
	}
	a.order = nil
	a.calls = make(map[int]*partialCall)
	return frags
}
