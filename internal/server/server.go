// Package server exposes the generation pipeline over HTTP: an SSE query
// endpoint, a session event feed, history inspection, and the static
// /generated tree that serves bundled widget pages.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/widgetsmith/internal/gateway"
	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/internal/workspace"
)

// Server is the HTTP boundary. It implements http.Handler.
type Server struct {
	registry *state.Registry
	gw       *gateway.Gateway
	router   chi.Router
}

// New creates a Server. generatedRoot is the directory mapped to the
// public /generated prefix.
func New(registry *state.Registry, gw *gateway.Gateway, generatedRoot string) *Server {
	s := &Server{registry: registry, gw: gw}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(permissiveHeaders)

	r.Get("/health", s.handleHealth)
	r.Get("/agent/query", s.handleQuery)
	r.Get("/agent/subscribe/{sessionID}", s.handleSubscribe)
	r.Get("/agent/history/{sessionID}", s.handleHistory)
	r.Get("/api/sessions", s.handleSessions)
	r.Handle("/generated/*", http.StripPrefix("/generated/", http.FileServer(http.Dir(generatedRoot))))

	s.router = r
	return s
}

// ServeHTTP delegates to the internal router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// permissiveHeaders opens the API to browser clients and allows generated
// widget pages to be embedded in any frame.
func permissiveHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Content-Security-Policy", "frame-ancestors *")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleQuery submits a prompt and streams that run's events back as SSE
// until the run's done event.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	sessionID := types.SessionID(r.URL.Query().Get("session_id"))
	if prompt == "" || sessionID == "" {
		writeError(w, http.StatusBadRequest, "prompt and session_id are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The tap may drop intermediate events when the client is slow, but
	// done terminates the stream and must always arrive. It travels on its
	// own channel: it is emitted exactly once per run, so the buffered send
	// can never block the pipeline.
	events := make(chan types.Event, 256)
	terminal := make(chan types.Event, 1)
	_, err := s.gw.Submit(sessionID, prompt, gateway.WithOnEvent(func(ev types.Event) {
		if ev.Type == types.EventDone {
			terminal <- ev
			return
		}
		select {
		case events <- ev:
		default:
		}
	}))
	if err != nil {
		if errors.Is(err, workspace.ErrInvalidSessionID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("submit run failed", "session_id", string(sessionID), "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	setSSEHeaders(w)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			writeSSE(w, ev)
			flusher.Flush()
		case ev := <-terminal:
			// The run is over; flush whatever survived in the buffer before
			// the closing done event.
			for {
				select {
				case buffered := <-events:
					writeSSE(w, buffered)
				default:
					writeSSE(w, ev)
					flusher.Flush()
					return
				}
			}
		}
	}
}

// handleSubscribe attaches to a session's event bus and streams until the
// client disconnects. Events buffered while nobody was attached are
// delivered first.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	session, err := s.registry.Resolve(sessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	setSSEHeaders(w)
	writeSSE(w, types.TextEvent(types.EventLog, "Subscribed to session "+string(sessionID)))
	flusher.Flush()

	ch, detach := session.Bus.Subscribe()
	defer detach()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

// handleHistory returns the session's committed turns verbatim. Unknown
// sessions yield an empty list, not an error.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	turns := []types.Turn{}
	if session, ok := s.registry.Lookup(sessionID); ok {
		turns = session.History()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(turns)
}

// SessionInfo is the wire shape of one entry in the session listing.
type SessionInfo struct {
	SessionID   string `json:"session_id"`
	CreatedAt   string `json:"created_at"`
	Turns       int    `json:"turns"`
	Subscribers int    `json:"subscribers"`
	Workspace   string `json:"workspace"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()
	result := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, SessionInfo{
			SessionID:   string(session.ID),
			CreatedAt:   session.CreatedAt.Format(time.RFC3339),
			Turns:       session.Len(),
			Subscribers: session.Bus.Subscribers(),
			Workspace:   session.Workspace.Root(),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeSSE(w http.ResponseWriter, ev types.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("marshal event failed", "type", string(ev.Type), "error", err)
		return
	}
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
