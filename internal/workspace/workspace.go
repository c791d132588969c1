// Package workspace manages per-session artifact directories. Every path
// handed to a Workspace is resolved strictly inside that session's root;
// tool-supplied paths can never write outside the sandbox.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/widgetsmith/internal/types"
)

// Well-known artifact file names inside a workspace.
const (
	ComponentFile = "widget.jsx"
	BundleFile    = "widget.bundled.js"
	MetadataFile  = "widget.json"
	PageFile      = "index.html"
)

// ErrUnsafePath is returned when a relative path would escape the
// workspace root. The offending write is rejected before any filesystem
// operation runs.
var ErrUnsafePath = errors.New("path escapes workspace root")

// ErrInvalidSessionID is returned for session ids that cannot safely name
// a workspace directory. Ids are caller-supplied and unauthenticated, so
// anything beyond [A-Za-z0-9_-] is rejected before a path is built.
var ErrInvalidSessionID = errors.New("invalid session id")

func validSessionID(id types.SessionID) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// Manager owns the generated-artifacts tree under <dataDir>/generated.
// Workspaces live at generated/workspaces/session_<id>/ and are served
// publicly under the /generated prefix.
type Manager struct {
	generatedRoot string
}

// NewManager creates a Manager rooted at dataDir.
func NewManager(dataDir string) *Manager {
	return &Manager{generatedRoot: filepath.Join(dataDir, "generated")}
}

// GeneratedRoot returns the directory mapped to the public /generated prefix.
func (m *Manager) GeneratedRoot() string {
	return m.generatedRoot
}

// Create returns the workspace for the given session, creating its
// directory if needed. Creation is idempotent; the workspace is never
// deleted by this package. The id becomes a directory name, so it must
// pass validSessionID before any path is derived from it.
func (m *Manager) Create(id types.SessionID) (*Workspace, error) {
	if !validSessionID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	root := filepath.Join(m.generatedRoot, "workspaces", "session_"+string(id))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	return &Workspace{root: root, generatedRoot: m.generatedRoot}, nil
}

// Workspace is one session's exclusive artifact directory.
type Workspace struct {
	root          string
	generatedRoot string
}

// Root returns the workspace directory on disk.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a caller-supplied relative path to an absolute path inside
// the workspace. Leading separators are stripped (so "/widget.jsx" means
// "widget.jsx"); any path that still reaches outside the root after
// cleaning is rejected with ErrUnsafePath.
func (w *Workspace) Resolve(rel string) (string, error) {
	rel = strings.TrimLeft(rel, "/\\")
	if rel == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return filepath.Join(w.root, clean), nil
}

// WriteFile writes data at the given workspace-relative path, creating
// parent directories as needed. Writes are last-write-wins overwrites.
func (w *Workspace) WriteFile(rel string, data []byte) (string, error) {
	path, err := w.Resolve(rel)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != w.root {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create parent dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return path, nil
}

// ReadFile reads a workspace-relative file.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	path, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return data, nil
}

// WriteComponent writes the widget source to widget.jsx.
func (w *Workspace) WriteComponent(source string) (string, error) {
	return w.WriteFile(ComponentFile, []byte(source))
}

// WriteMetadata writes widget.json.
func (w *Workspace) WriteMetadata(meta types.WidgetMeta) (string, error) {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return w.WriteFile(MetadataFile, data)
}

// ReadMetadata returns the widget.json contents if the file exists and
// parses; ok is false otherwise. A missing or malformed metadata file is
// not an error, the caller falls back to defaults.
func (w *Workspace) ReadMetadata() (meta types.WidgetMeta, ok bool) {
	data, err := w.ReadFile(MetadataFile)
	if err != nil {
		return types.WidgetMeta{}, false
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return types.WidgetMeta{}, false
	}
	return meta, true
}

// PublicPath returns the URL path under the /generated prefix for a
// workspace-relative file, e.g. /generated/workspaces/session_s1/index.html.
func (w *Workspace) PublicPath(rel string) (string, error) {
	abs, err := w.Resolve(rel)
	if err != nil {
		return "", err
	}
	relToGenerated, err := filepath.Rel(w.generatedRoot, abs)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}
	return "/generated/" + filepath.ToSlash(relToGenerated), nil
}
