// Package notify fans widget-ready notifications out to external channels.
// Delivery is best effort: a failing channel is logged and never fails the
// generation run that triggered it.
package notify

import (
	"log/slog"
	"sync"

	"github.com/user/widgetsmith/internal/types"
)

// Notifier delivers a preview-ready notification to one channel.
type Notifier interface {
	Name() string
	PreviewReady(sessionID types.SessionID, manifest types.Manifest) error
}

// Registry holds the configured notifiers.
type Registry struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewRegistry creates an empty notifier registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a notifier.
func (r *Registry) Register(n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers = append(r.notifiers, n)
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// PreviewReady notifies every registered channel. Failures are logged per
// channel and do not stop the fan-out.
func (r *Registry) PreviewReady(sessionID types.SessionID, manifest types.Manifest) {
	r.mu.RLock()
	notifiers := make([]Notifier, len(r.notifiers))
	copy(notifiers, r.notifiers)
	r.mu.RUnlock()

	for _, n := range notifiers {
		if err := n.PreviewReady(sessionID, manifest); err != nil {
			slog.Warn("notify failed",
				"channel", n.Name(),
				"session_id", string(sessionID),
				"widget_id", string(manifest.ID),
				"error", err,
			)
		}
	}
}
