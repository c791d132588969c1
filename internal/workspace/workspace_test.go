package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/widgetsmith/internal/types"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	m := NewManager(t.TempDir())
	ws, err := m.Create("s1")
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestCreateIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir())

	ws1, err := m.Create("abc")
	if err != nil {
		t.Fatal(err)
	}
	ws2, err := m.Create("abc")
	if err != nil {
		t.Fatal(err)
	}
	if ws1.Root() != ws2.Root() {
		t.Errorf("expected same root, got %s and %s", ws1.Root(), ws2.Root())
	}
	if !strings.HasSuffix(ws1.Root(), filepath.Join("workspaces", "session_abc")) {
		t.Errorf("unexpected workspace root: %s", ws1.Root())
	}
}

func TestCreateRejectsUnsafeSessionID(t *testing.T) {
	base := t.TempDir()
	m := NewManager(filepath.Join(base, "data"))

	for _, id := range []types.SessionID{
		"a/../../../../escape",
		"../up",
		"a/b",
		`a\b`,
		"has space",
		"dot.dot",
		"",
	} {
		if _, err := m.Create(id); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Create(%q): expected ErrInvalidSessionID, got %v", id, err)
		}
	}

	// Nothing may have been created outside the managed root.
	if _, err := os.Stat(filepath.Join(base, "escape")); !os.IsNotExist(err) {
		t.Error("traversal id created a directory outside the generated root")
	}

	ws, err := m.Create("Ok-id_42")
	if err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	if !strings.HasPrefix(ws.Root(), m.GeneratedRoot()) {
		t.Errorf("workspace %s outside generated root %s", ws.Root(), m.GeneratedRoot())
	}
}

func TestResolveStripsLeadingSeparator(t *testing.T) {
	ws := newTestWorkspace(t)

	path, err := ws.Resolve("/etc/passwd")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(path, ws.Root()) {
		t.Errorf("resolved path %s is outside workspace %s", path, ws.Root())
	}
	if path != filepath.Join(ws.Root(), "etc", "passwd") {
		t.Errorf("unexpected resolution: %s", path)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	ws := newTestWorkspace(t)

	for _, rel := range []string{"../../escape.txt", "..", "a/../../../b", "../sibling/widget.jsx"} {
		if _, err := ws.Resolve(rel); !errors.Is(err, ErrUnsafePath) {
			t.Errorf("Resolve(%q): expected ErrUnsafePath, got %v", rel, err)
		}
	}

	// Interior dot-dot segments that stay inside the root are fine.
	path, err := ws.Resolve("a/../widget.jsx")
	if err != nil {
		t.Fatalf("Resolve(a/../widget.jsx): %v", err)
	}
	if path != filepath.Join(ws.Root(), "widget.jsx") {
		t.Errorf("unexpected resolution: %s", path)
	}
}

func TestWriteFileNeverEscapes(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)
	ws, err := m.Create("s1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ws.WriteFile("../../escape.txt", []byte("nope")); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("expected ErrUnsafePath, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); !os.IsNotExist(err) {
		t.Error("traversal write escaped the workspace")
	}
}

func TestWriteComponentOverwrites(t *testing.T) {
	ws := newTestWorkspace(t)

	if _, err := ws.WriteComponent("export default function A() {}"); err != nil {
		t.Fatal(err)
	}
	path, err := ws.WriteComponent("export default function B() {}")
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "function B") {
		t.Errorf("expected last write to win, got %s", data)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)

	if _, ok := ws.ReadMetadata(); ok {
		t.Fatal("expected no metadata before write")
	}

	if _, err := ws.WriteMetadata(types.WidgetMeta{Title: "Counter", Width: 3, Height: 2}); err != nil {
		t.Fatal(err)
	}

	meta, ok := ws.ReadMetadata()
	if !ok {
		t.Fatal("expected metadata after write")
	}
	if meta.Title != "Counter" || meta.Width != 3 || meta.Height != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestReadMetadataIgnoresMalformed(t *testing.T) {
	ws := newTestWorkspace(t)

	if _, err := ws.WriteFile(MetadataFile, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if _, ok := ws.ReadMetadata(); ok {
		t.Error("expected malformed metadata to be treated as absent")
	}
}

func TestPublicPath(t *testing.T) {
	m := NewManager(t.TempDir())
	ws, err := m.Create("s1")
	if err != nil {
		t.Fatal(err)
	}

	url, err := ws.PublicPath(PageFile)
	if err != nil {
		t.Fatal(err)
	}
	if url != "/generated/workspaces/session_s1/index.html" {
		t.Errorf("unexpected public path: %s", url)
	}
}

func TestWriteFileCreatesNestedDirs(t *testing.T) {
	ws := newTestWorkspace(t)

	path, err := ws.WriteFile("components/Button.jsx", []byte("export default () => null"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("nested write missing: %v", err)
	}
}
