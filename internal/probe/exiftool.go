package probe

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/drivedex/drivedex/internal/logger"
)

// ExifToolClient captures the full tag snapshot of files through one
// persistent exiftool process in stay-open mode. Spawning exiftool per
// file costs more than the extraction itself on large trees; the resident
// process answers each file over its stdin/stdout pipe instead.
//
// The client is owned by the single scan goroutine and is not safe for
// concurrent use.
type ExifToolClient struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewExifToolClient starts the resident exiftool process. When exiftool is
// not installed, it returns (nil, nil) and the scan stores null snapshots.
func NewExifToolClient() (*ExifToolClient, error) {
	if !toolAvailable("exiftool") {
		logger.Warnf("exiftool not found on PATH, raw tag snapshots will be empty")
		return nil, nil
	}

	cmd := exec.Command("exiftool", "-stay_open", "True", "-@", "-")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("exiftool stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("exiftool stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}

	return &ExifToolClient{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// Snapshot returns the file's complete tag set as the JSON array exiftool
// emits: one object per file, stored verbatim for later retrieval.
func (c *ExifToolClient) Snapshot(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	if _, err := fmt.Fprintf(c.stdin, "-j\n%s\n-execute\n", path); err != nil {
		return "", fmt.Errorf("writing to exiftool: %w", err)
	}

	var out strings.Builder
	for {
		line, err := c.stdout.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading from exiftool: %w", err)
		}
		if strings.HasPrefix(line, "{ready") {
			break
		}
		out.WriteString(line)
	}
	return strings.TrimSpace(out.String()), nil
}

// Close asks the resident process to exit and waits for it.
func (c *ExifToolClient) Close() error {
	if _, err := io.WriteString(c.stdin, "-stay_open\nFalse\n-execute\n"); err != nil {
		c.cmd.Process.Kill()
		return c.cmd.Wait()
	}
	c.stdin.Close()
	return c.cmd.Wait()
}
