package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/widgetsmith/internal/bundler"
	"github.com/user/widgetsmith/internal/workspace"
)

// BundleProject lets the model compile the workspace's widget.jsx into
// widget.bundled.js mid-turn, so it can react to compile errors before
// signalling the preview.
type BundleProject struct {
	invoker *bundler.Invoker
	ws      *workspace.Workspace
}

// NewBundleProject creates a bundle tool bound to one session's workspace.
func NewBundleProject(invoker *bundler.Invoker, ws *workspace.Workspace) *BundleProject {
	return &BundleProject{invoker: invoker, ws: ws}
}

func (b *BundleProject) Name() string { return "bundle_project" }
func (b *BundleProject) Description() string {
	return "Bundle the current project (widget.jsx) into a single file (widget.bundled.js). Call this BEFORE preview_widget."
}
func (b *BundleProject) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (b *BundleProject) Execute(ctx context.Context, _ json.RawMessage) (string, error) {
	_, err := b.invoker.Bundle(ctx, b.ws)
	if err != nil {
		// Build failures are fed back to the model as result text so it
		// can fix the source and retry, not surfaced as pipeline errors.
		var buildErr *bundler.BuildError
		if errors.As(err, &buildErr) {
			return fmt.Sprintf("Bundling failed: %s", buildErr.Stderr), nil
		}
		return fmt.Sprintf("Bundling error: %v", err), nil
	}
	return "Bundling successful: widget.bundled.js created.", nil
}
