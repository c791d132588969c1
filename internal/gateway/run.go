package gateway

import (
	"context"
	"time"

	"github.com/user/widgetsmith/internal/types"
)

// RunStatus represents the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run tracks a single generation request against a session. OnEvent, when
// set, receives every event the run emits in addition to the session bus;
// the request handler that submitted the run uses it to stream the run's
// own events back without consuming the bus.
type Run struct {
	ID        types.RunID
	SessionID types.SessionID
	Prompt    string
	Status    RunStatus
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	Err       error
	Ctx       context.Context
	OnEvent   func(types.Event)
}

// NewRun creates a Run in the Queued state for the given session and prompt.
func NewRun(sessionID types.SessionID, prompt string) *Run {
	return &Run{
		ID:        types.NewRunID(),
		SessionID: sessionID,
		Prompt:    prompt,
		Status:    RunStatusQueued,
		CreatedAt: time.Now(),
	}
}
