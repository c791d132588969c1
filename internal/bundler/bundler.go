// Package bundler wraps the esbuild executable. The argument contract is
// fixed: the component entry point is widget.jsx, the output is an ESM
// bundle at widget.bundled.js, and the UI runtime plus its peer libraries
// are externalized so the host page supplies them via import map.
package bundler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/user/widgetsmith/internal/workspace"
)

// BuildError is the structured failure of a bundling attempt. Stderr holds
// the captured diagnostic text verbatim; it is surfaced to callers, never
// swallowed.
type BuildError struct {
	Stderr string
}

func (e *BuildError) Error() string {
	return "bundle failed: " + strings.TrimSpace(e.Stderr)
}

// Descriptor describes a successful bundle: the output file, the generated
// host page, and the page's public URL path.
type Descriptor struct {
	BundlePath string
	PagePath   string
	PageURL    string
}

// Invoker runs esbuild as a subprocess inside a session workspace.
type Invoker struct {
	path    string
	timeout time.Duration
}

// New creates an Invoker for the esbuild binary at path. The timeout
// bounds each invocation; the bundled input is untrusted generated code,
// so the subprocess is never allowed to run unbounded.
func New(path string, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Invoker{path: path, timeout: timeout}
}

// esbuild argument set. Module format and externals are not configurable.
var bundleArgs = []string{
	workspace.ComponentFile,
	"--bundle",
	"--outfile=" + workspace.BundleFile,
	"--format=esm",
	"--jsx=automatic",
	"--loader:.js=jsx",
	"--loader:.jsx=jsx",
	"--external:react",
	"--external:react/jsx-runtime",
	"--external:lucide-react",
	"--external:framer-motion",
}

// Bundle compiles the workspace's widget.jsx and, on success, writes the
// host page next to the bundle. Failures of any kind (non-zero exit,
// missing executable, timeout) come back as a *BuildError.
func (b *Invoker) Bundle(ctx context.Context, ws *workspace.Workspace) (*Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.path, bundleArgs...)
	cmd.Dir = ws.Root()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &BuildError{Stderr: fmt.Sprintf("esbuild timed out after %s", b.timeout)}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &BuildError{Stderr: msg}
	}

	pagePath, err := ws.WriteFile(workspace.PageFile, []byte(hostPage))
	if err != nil {
		return nil, &BuildError{Stderr: fmt.Sprintf("write host page: %v", err)}
	}
	pageURL, err := ws.PublicPath(workspace.PageFile)
	if err != nil {
		return nil, &BuildError{Stderr: fmt.Sprintf("resolve page url: %v", err)}
	}

	bundlePath, err := ws.Resolve(workspace.BundleFile)
	if err != nil {
		return nil, &BuildError{Stderr: fmt.Sprintf("resolve bundle path: %v", err)}
	}

	return &Descriptor{
		BundlePath: bundlePath,
		PagePath:   pagePath,
		PageURL:    pageURL,
	}, nil
}
