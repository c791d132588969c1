// internal/types/ids.go
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionID is the caller-supplied opaque key for a session. It is never
// generated server-side; whatever string the caller presents is the key.
type SessionID string

type RunID string
type WidgetID string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// NewWidgetID derives a widget identifier from a title and creation time:
// unix timestamp, underscore, then the title lower-cased, stripped to
// [a-z0-9], and truncated to 20 characters. Collisions at one-second
// granularity are accepted; the id addresses the widget, it does not
// guarantee uniqueness.
func NewWidgetID(title string, at time.Time) WidgetID {
	var slug strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			slug.WriteRune(r)
		}
		if slug.Len() >= 20 {
			break
		}
	}
	return WidgetID(fmt.Sprintf("%d_%s", at.Unix(), slug.String()))
}
