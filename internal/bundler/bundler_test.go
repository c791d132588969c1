package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/widgetsmith/internal/workspace"
)

// writeFakeEsbuild installs a shell script standing in for the esbuild
// binary and returns its path.
func writeFakeEsbuild(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esbuild")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.NewManager(t.TempDir()).Create("s1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ws.WriteComponent("export default function Widget() { return null }"); err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestBundleSuccess(t *testing.T) {
	ws := newTestWorkspace(t)
	esbuild := writeFakeEsbuild(t, `echo "bundled" > widget.bundled.js`)

	desc, err := New(esbuild, 10*time.Second).Bundle(context.Background(), ws)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(desc.BundlePath); err != nil {
		t.Errorf("bundle file missing: %v", err)
	}
	page, err := os.ReadFile(desc.PagePath)
	if err != nil {
		t.Fatalf("host page missing: %v", err)
	}
	if !strings.Contains(string(page), "importmap") {
		t.Error("host page missing import map")
	}
	if !strings.Contains(string(page), "./widget.bundled.js") {
		t.Error("host page does not reference the bundle")
	}
	if desc.PageURL != "/generated/workspaces/session_s1/index.html" {
		t.Errorf("unexpected page URL: %s", desc.PageURL)
	}
}

func TestBundleFailureCapturesStderr(t *testing.T) {
	ws := newTestWorkspace(t)
	esbuild := writeFakeEsbuild(t, `echo "error: Unexpected token" >&2; exit 1`)

	_, err := New(esbuild, 10*time.Second).Bundle(context.Background(), ws)
	if err == nil {
		t.Fatal("expected error")
	}

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if !strings.Contains(buildErr.Stderr, "Unexpected token") {
		t.Errorf("stderr not captured: %q", buildErr.Stderr)
	}
}

func TestBundleMissingExecutable(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := New(filepath.Join(t.TempDir(), "no-such-esbuild"), 10*time.Second).Bundle(context.Background(), ws)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T (%v)", err, err)
	}
}

func TestBundleTimeout(t *testing.T) {
	ws := newTestWorkspace(t)
	esbuild := writeFakeEsbuild(t, `sleep 5`)

	start := time.Now()
	_, err := New(esbuild, 200*time.Millisecond).Bundle(context.Background(), ws)
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced")
	}

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T (%v)", err, err)
	}
	if !strings.Contains(buildErr.Stderr, "timed out") {
		t.Errorf("expected timeout reason, got %q", buildErr.Stderr)
	}
}

func TestBundleRunsInWorkspace(t *testing.T) {
	ws := newTestWorkspace(t)
	esbuild := writeFakeEsbuild(t, `pwd > cwd.txt; echo x > widget.bundled.js`)

	if _, err := New(esbuild, 10*time.Second).Bundle(context.Background(), ws); err != nil {
		t.Fatal(err)
	}

	cwd, err := ws.ReadFile("cwd.txt")
	if err != nil {
		t.Fatal(err)
	}
	got := strings.TrimSpace(string(cwd))
	want, _ := filepath.EvalSymlinks(ws.Root())
	if got != want && got != ws.Root() {
		t.Errorf("esbuild ran in %s, want %s", got, ws.Root())
	}
}
