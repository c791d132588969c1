// Package gateway admits generation requests into the run queue. Each
// session has its own FIFO lane, so a busy session queues rather than
// rejects, while a global semaphore caps cross-session parallelism.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/types"
)

// Gateway orchestrates prompts into runs. It resolves (or creates) the
// target session, wraps each prompt in a Run, and enqueues the run for
// processing.
type Gateway struct {
	registry *state.Registry
	Queue    *Queue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway over the session registry with the given
// concurrency limit for simultaneous run processing.
func New(registry *state.Registry, maxConcurrent int64) *Gateway {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Gateway{
		registry: registry,
		Queue:    NewQueue(maxConcurrent),
	}
}

// Start initialises the gateway's context and starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.Queue.Start(g.ctx)
}

// Stop cancels the gateway context, stops the queue, and waits for any
// outstanding work to finish.
func (g *Gateway) Stop() {
	if g.cancel != nil {
		g.cancel()
	}
	g.Queue.Stop()
	g.wg.Wait()
}

// RunOption configures optional behavior on a Run.
type RunOption func(*Run)

// WithOnEvent sets a per-run event tap, invoked for every event the run
// emits.
func WithOnEvent(fn func(types.Event)) RunOption {
	return func(r *Run) { r.OnEvent = fn }
}

// Submit resolves or creates the session for id, wraps the prompt in a
// Run, and enqueues it on the session's lane.
func (g *Gateway) Submit(sessionID types.SessionID, prompt string, opts ...RunOption) (*Run, error) {
	session, err := g.registry.Resolve(sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	run := NewRun(session.ID, prompt)
	for _, opt := range opts {
		opt(run)
	}
	if err := g.Queue.Enqueue(run); err != nil {
		return nil, err
	}
	return run, nil
}
