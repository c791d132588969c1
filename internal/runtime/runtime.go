// Package runtime executes generation runs end to end: it assembles the
// per-run tool set, drives the model turn, and publishes the preview
// pipeline's events to the session bus.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/widgetsmith/internal/bundler"
	"github.com/user/widgetsmith/internal/gateway"
	"github.com/user/widgetsmith/internal/notify"
	"github.com/user/widgetsmith/internal/prompt"
	"github.com/user/widgetsmith/internal/runtime/tools"
	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/internal/workspace"
	"github.com/user/widgetsmith/pkg/llm"
)

const defaultMaxToolRounds = 8

// fallbackTitle names widgets whose preview request carried no title and
// whose workspace has no metadata.
const fallbackTitle = "Generated Component"

// Runtime processes runs dequeued by the gateway.
type Runtime struct {
	registry  *state.Registry
	engine    *prompt.Engine
	provider  llm.Provider
	invoker   *bundler.Invoker
	notifiers *notify.Registry
	maxRounds int
	baseTools []Tool
}

// New creates a Runtime. provider may be nil when no API key is configured;
// runs then fail fast with a configuration error instead of opening a
// stream.
func New(registry *state.Registry, engine *prompt.Engine, provider llm.Provider, invoker *bundler.Invoker, notifiers *notify.Registry) *Runtime {
	if notifiers == nil {
		notifiers = notify.NewRegistry()
	}
	return &Runtime{
		registry:  registry,
		engine:    engine,
		provider:  provider,
		invoker:   invoker,
		notifiers: notifiers,
		maxRounds: defaultMaxToolRounds,
	}
}

// SetMaxToolRounds bounds the number of tool-dispatch rounds per turn.
func (r *Runtime) SetMaxToolRounds(n int) {
	if n > 0 {
		r.maxRounds = n
	}
}

// RegisterBaseTool adds a session-independent tool (search, URL reading)
// offered on every run alongside the per-run workspace tools.
func (r *Runtime) RegisterBaseTool(t Tool) {
	r.baseTools = append(r.baseTools, t)
}

// ProcessRun executes one generation run. Every run ends with exactly one
// done event, emitted after all other events on every path, so subscribers
// can treat it as the terminator.
func (r *Runtime) ProcessRun(run *gateway.Run) error {
	ctx := run.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := r.registry.Resolve(run.SessionID)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	emit := func(ev types.Event) {
		session.Bus.Publish(ev)
		if run.OnEvent != nil {
			run.OnEvent(ev)
		}
	}

	started := time.Now()
	run.StartedAt = &started
	run.Status = gateway.RunStatusRunning

	finish := func(status gateway.RunStatus, runErr error) {
		emit(types.TextEvent(types.EventDone, "stop"))
		ended := time.Now()
		run.EndedAt = &ended
		run.Status = status
		run.Err = runErr
	}

	if r.provider == nil {
		emit(types.TextEvent(types.EventError, "OPENAI_API_KEY not found."))
		finish(gateway.RunStatusFailed, errors.New("no provider configured"))
		return nil
	}

	emit(types.TextEvent(types.EventLog, "Agent received: "+run.Prompt))
	slog.Info("run started",
		"run_id", string(run.ID),
		"session_id", string(session.ID),
	)

	preview := tools.NewPreview()
	registry := NewRegistry()
	for _, t := range r.baseTools {
		registry.Register(t)
	}
	registry.Register(tools.NewWriteFile(session.Workspace))
	registry.Register(tools.NewBundleProject(r.invoker, session.Workspace))
	registry.Register(preview)

	runner := &turnRunner{
		session:   session,
		engine:    r.engine,
		provider:  r.provider,
		tools:     registry,
		emit:      emit,
		maxRounds: r.maxRounds,
	}

	result, err := runner.run(ctx, run.Prompt)
	if err != nil {
		emit(types.TextEvent(types.EventError, err.Error()))
		finish(gateway.RunStatusFailed, err)
		return err
	}

	if req, ok := preview.Captured(); ok {
		r.publishPreview(ctx, session, req, emit)
	} else {
		emit(types.TextEvent(types.EventLog, "No widget artifact was produced."))
	}

	finish(gateway.RunStatusComplete, nil)
	slog.Info("run complete",
		"run_id", string(run.ID),
		"session_id", string(session.ID),
		"tool_calls", len(result.ToolCalls),
		"duration", time.Since(started),
	)
	return nil
}

// publishPreview resolves the widget's title, size and code, emits the
// inline preview, persists the artifacts, and attempts a bundle. The inline
// preview always goes out first; persistence and bundling failures degrade
// to log events and never abort the run.
func (r *Runtime) publishPreview(ctx context.Context, session *state.Session, req tools.PreviewRequest, emit func(types.Event)) {
	ws := session.Workspace

	title := req.Title
	dims := types.Dimensions{Width: req.Width, Height: req.Height}
	if meta, ok := ws.ReadMetadata(); ok {
		if title == "" {
			title = meta.Title
		}
		if dims.Width == 0 {
			dims.Width = meta.Width
		}
		if dims.Height == 0 {
			dims.Height = meta.Height
		}
	}
	if title == "" {
		title = fallbackTitle
	}
	dims = dims.Clamp(2)

	code := req.Code
	if code == "" {
		if data, err := ws.ReadFile(workspace.ComponentFile); err == nil {
			code = string(data)
		}
	}
	if code == "" {
		emit(types.TextEvent(types.EventLog, "Preview requested but no widget code was found."))
		return
	}

	id := types.NewWidgetID(title, time.Now())
	manifest := types.Manifest{
		ID:          id,
		Title:       title,
		Dimensions:  dims,
		Code:        &code,
		ProjectPath: ws.Root(),
	}
	emit(types.ObjectEvent(types.EventPreview, manifest))

	if _, err := ws.WriteComponent(code); err != nil {
		slog.Warn("write component failed", "session_id", string(session.ID), "error", err)
		emit(types.TextEvent(types.EventLog, "Failed to save widget.jsx: "+err.Error()))
	}
	meta := types.WidgetMeta{Title: title, Width: dims.Width, Height: dims.Height}
	if _, err := ws.WriteMetadata(meta); err != nil {
		slog.Warn("write metadata failed", "session_id", string(session.ID), "error", err)
		emit(types.TextEvent(types.EventLog, "Failed to save widget.json: "+err.Error()))
	}

	desc, err := r.invoker.Bundle(ctx, ws)
	if err != nil {
		var buildErr *bundler.BuildError
		msg := err.Error()
		if errors.As(err, &buildErr) {
			msg = buildErr.Stderr
		}
		slog.Warn("bundle failed", "session_id", string(session.ID), "widget_id", string(id))
		emit(types.TextEvent(types.EventLog, "Bundling failed: "+msg))
		return
	}

	built := types.Manifest{
		ID:          id,
		Title:       title,
		Dimensions:  dims,
		URL:         &desc.PageURL,
		ProjectPath: ws.Root(),
	}
	emit(types.ObjectEvent(types.EventPreview, built))
	r.notifiers.PreviewReady(session.ID, built)
}
