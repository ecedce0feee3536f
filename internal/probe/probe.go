// Package probe extracts file metadata. Category-specific probers shell
// out to external tools (ffprobe, exiftool, file) or decode in-process;
// every prober is failure-tolerant: a missing tool or an unreadable file
// yields empty metadata, never an aborted scan.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Fields is the structured metadata of one file, keyed by field name.
// Values are JSON-encodable; the scan engine stores the whole map as a
// JSON blob on the file record.
type Fields map[string]any

// Prober extracts category-specific metadata for a path. Implementations
// return (nil, nil) when they have nothing to say about the file; errors
// are reserved for tool failures worth logging.
type Prober interface {
	Probe(ctx context.Context, path string) (Fields, error)
}

// TypeIdentifier returns a human-readable content-type description for a
// path, independent of the category probers.
type TypeIdentifier interface {
	Identify(ctx context.Context, path string) (string, error)
}

// Snapshotter captures the full raw tag set of a file as a JSON document.
type Snapshotter interface {
	Snapshot(path string) (string, error)
}

// defaultTimeout bounds a single external tool invocation. Probing never
// times out the scan as a whole, only the one stuck subprocess.
const defaultTimeout = 60 * time.Second

// validatePath rejects paths that could smuggle shell metacharacters or
// relative escapes into a subprocess argument list.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	if strings.ContainsAny(path, ";&|`$\n\r") {
		return fmt.Errorf("path contains shell metacharacters: %q", path)
	}
	// Only a whole ".." path element is a traversal; file names may
	// legitimately contain consecutive dots.
	for _, elem := range strings.Split(path, string(filepath.Separator)) {
		if elem == ".." {
			return fmt.Errorf("path contains traversal sequence: %q", path)
		}
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path is not absolute: %q", path)
	}
	return nil
}

// runTool executes an external tool with a bounded timeout and returns its
// stdout. The subprocess is killed if the deadline passes.
func runTool(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.Output()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %s", name, timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// toolAvailable reports whether an external tool is on PATH. Checked once
// per prober at construction so a missing tool degrades to null metadata
// instead of failing every file.
func toolAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
