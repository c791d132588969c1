package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/widgetsmith/internal/gateway"
	"github.com/user/widgetsmith/internal/state"
	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/internal/workspace"
)

// setupServer wires a real gateway whose processor replays the given
// events onto both the run tap and the session bus.
func setupServer(t *testing.T, events ...types.Event) (*Server, *state.Registry) {
	t.Helper()
	manager := workspace.NewManager(t.TempDir())
	registry := state.NewRegistry(manager)

	gw := gateway.New(registry, 2)
	gw.Queue.SetProcessor(func(run *gateway.Run) error {
		session, _ := registry.Lookup(run.SessionID)
		for _, ev := range events {
			session.Bus.Publish(ev)
			if run.OnEvent != nil {
				run.OnEvent(ev)
			}
		}
		return nil
	})
	gw.Start(context.Background())
	t.Cleanup(gw.Stop)

	return New(registry, gw, manager.GeneratedRoot()), registry
}

func parseSSE(t *testing.T, body string) []types.Event {
	t.Helper()
	var out []types.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev types.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad SSE line %q: %v", line, err)
		}
		out = append(out, ev)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %s", resp["status"])
	}
}

func TestQueryStreamsRunEvents(t *testing.T) {
	srv, _ := setupServer(t,
		types.TextEvent(types.EventLog, "Agent received: hi"),
		types.TextEvent(types.EventChunk, "hello"),
		types.TextEvent(types.EventDone, "stop"),
	)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/query?prompt=hi&session_id=s1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", ct)
	}

	events := parseSSE(t, w.Body.String())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[len(events)-1].Type != types.EventDone {
		t.Errorf("expected done last, got %+v", events)
	}
}

func TestQueryFloodStillTerminatesWithDone(t *testing.T) {
	// Far more chunks than the tap buffer holds; intermediate chunks may
	// drop but the stream must still end with exactly one done event.
	flood := make([]types.Event, 0, 2001)
	for i := 0; i < 2000; i++ {
		flood = append(flood, types.TextEvent(types.EventChunk, "token"))
	}
	flood = append(flood, types.TextEvent(types.EventDone, "stop"))
	srv, _ := setupServer(t, flood...)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/query?prompt=hi&session_id=s1", nil))

	events := parseSSE(t, w.Body.String())
	if len(events) == 0 {
		t.Fatal("no events streamed")
	}
	var dones int
	for _, ev := range events {
		if ev.Type == types.EventDone {
			dones++
		}
	}
	if dones != 1 {
		t.Errorf("expected exactly one done event, got %d", dones)
	}
	if events[len(events)-1].Type != types.EventDone {
		t.Errorf("expected done last, got %s", events[len(events)-1].Type)
	}
}

func TestQueryRejectsUnsafeSessionID(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/agent/query?prompt=hi&session_id=a%2F..%2F..%2Fescape", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for traversal session id, got %d", w.Code)
	}
}

func TestQueryRequiresPromptAndSession(t *testing.T) {
	srv, _ := setupServer(t)

	for _, url := range []string{
		"/agent/query",
		"/agent/query?prompt=hi",
		"/agent/query?session_id=s1",
	} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, w.Code)
		}
	}
}

func TestSubscribeDrainsBacklog(t *testing.T) {
	srv, registry := setupServer(t)

	session, err := registry.Resolve("s1")
	if err != nil {
		t.Fatal(err)
	}
	session.Bus.Publish(types.TextEvent(types.EventChunk, "buffered"))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/agent/subscribe/s1", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe handler did not return on context cancel")
	}

	events := parseSSE(t, w.Body.String())
	var sawBuffered bool
	for _, ev := range events {
		if ev.Type == types.EventChunk {
			sawBuffered = true
		}
	}
	if !sawBuffered {
		t.Errorf("expected buffered chunk event, got %+v", events)
	}
}

func TestHistoryUnknownSessionIsEmptyList(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/history/nope", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty list, got %q", body)
	}
}

func TestHistoryReturnsTurnsVerbatim(t *testing.T) {
	srv, registry := setupServer(t)

	session, err := registry.Resolve("s1")
	if err != nil {
		t.Fatal(err)
	}
	session.Append(
		types.Turn{Role: "user", Content: "make a clock"},
		types.Turn{Role: "assistant", Content: "done", ToolCalls: []types.ToolCall{
			{ID: "c1", Name: "preview_widget", Arguments: json.RawMessage(`{"title":"Clock"}`)},
		}},
	)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/agent/history/s1", nil))

	var turns []types.Turn
	if err := json.NewDecoder(w.Body).Decode(&turns); err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].ToolCalls[0].Name != "preview_widget" {
		t.Errorf("tool calls not preserved: %+v", turns[1])
	}
}

func TestSessionsListing(t *testing.T) {
	srv, registry := setupServer(t)

	session, err := registry.Resolve("s1")
	if err != nil {
		t.Fatal(err)
	}
	session.Append(
		types.Turn{Role: "user", Content: "hi"},
		types.Turn{Role: "assistant", Content: "hello"},
	)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var infos []SessionInfo
	if err := json.NewDecoder(w.Body).Decode(&infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 session, got %d", len(infos))
	}
	if infos[0].SessionID != "s1" || infos[0].Turns != 2 {
		t.Errorf("unexpected listing: %+v", infos[0])
	}
}

func TestGeneratedStaticServing(t *testing.T) {
	srv, registry := setupServer(t)

	session, err := registry.Resolve("s1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := session.Workspace.WriteFile("index.html", []byte("<html>widget</html>")); err != nil {
		t.Fatal(err)
	}

	public, err := session.Workspace.PublicPath("index.html")
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, public, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for %s, got %d", public, w.Code)
	}
	if !strings.Contains(w.Body.String(), "widget") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestFrameEmbeddingAllowed(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if csp := w.Header().Get("Content-Security-Policy"); csp != "frame-ancestors *" {
		t.Errorf("expected permissive frame-ancestors, got %q", csp)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", origin)
	}
}

func TestPreflightRequest(t *testing.T) {
	srv, _ := setupServer(t)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/agent/query", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestGeneratedDoesNotEscapeRoot(t *testing.T) {
	srv, registry := setupServer(t)

	if _, err := registry.Resolve("s1"); err != nil {
		t.Fatal(err)
	}

	// Plant a file outside the generated root.
	root := registry.List()[0].Workspace.Root()
	outside := filepath.Join(filepath.Dir(filepath.Dir(filepath.Dir(root))), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generated/../secret.txt", nil))

	if strings.Contains(w.Body.String(), "secret") {
		t.Error("static handler served a file outside the generated root")
	}
}
