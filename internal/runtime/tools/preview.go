package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// PreviewName is the reserved tool name the pipeline treats as the
// artifact-ready signal.
const PreviewName = "preview_widget"

// PreviewRequest holds the captured arguments of a preview_widget call.
type PreviewRequest struct {
	Title  string `json:"title"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Code   string `json:"code"`
}

// Preview is the artifact signal tool. A fresh instance is created for
// every turn, so the captured arguments are scoped to that turn and never
// shared across concurrent sessions.
type Preview struct {
	mu       sync.Mutex
	captured *PreviewRequest
}

// NewPreview creates an unarmed Preview capture for one turn.
func NewPreview() *Preview { return &Preview{} }

func (p *Preview) Name() string { return PreviewName }
func (p *Preview) Description() string {
	return "Notify that the widget files have been created and are ready for preview. " +
		"Call this AFTER you have written widget.jsx (and bundled it) and widget.json."
}
func (p *Preview) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Title of the widget"},
			"width": {"type": "integer", "description": "Width in grid units (1-4)"},
			"height": {"type": "integer", "description": "Height in grid units (1-4)"},
			"code": {"type": "string", "description": "Optional inline widget source if not written to widget.jsx"}
		},
		"required": ["title"]
	}`)
}

func (p *Preview) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var req PreviewRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	p.mu.Lock()
	p.captured = &req
	p.mu.Unlock()

	return "Success: Preview triggered.", nil
}

// Captured returns the arguments of the last preview_widget call in this
// turn, if any.
func (p *Preview) Captured() (PreviewRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.captured == nil {
		return PreviewRequest{}, false
	}
	return *p.captured, true
}
