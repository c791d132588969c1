package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/widgetsmith/internal/workspace"
)

// WriteFile writes files into the owning session's workspace. Paths are
// workspace-relative; the workspace rejects anything that would escape its
// root before touching the filesystem.
type WriteFile struct {
	ws *workspace.Workspace
}

// NewWriteFile creates a write tool bound to one session's workspace.
func NewWriteFile(ws *workspace.Workspace) *WriteFile {
	return &WriteFile{ws: ws}
}

func (w *WriteFile) Name() string { return "write_file" }
func (w *WriteFile) Description() string {
	return "Write a file into the project workspace. Use relative paths like widget.jsx, never leading slashes."
}
func (w *WriteFile) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Workspace-relative file path"},
			"content": {"type": "string", "description": "Full file contents"}
		},
		"required": ["path", "content"]
	}`)
}

func (w *WriteFile) Execute(_ context.Context, args json.RawMessage) (string, error) {
	var params struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}
	if params.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	if _, err := w.ws.WriteFile(params.Path, []byte(params.Content)); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("Wrote %s (%d bytes).", params.Path, len(params.Content)), nil
}
