package probe

import (
	"context"
	"strings"

	"github.com/drivedex/drivedex/internal/logger"
)

// FileTypeIdentifier returns the textual content-type description from the
// file(1) utility. Run for every non-directory entry, independent of the
// category probers.
type FileTypeIdentifier struct {
	available bool
}

func NewFileTypeIdentifier() *FileTypeIdentifier {
	f := &FileTypeIdentifier{available: toolAvailable("file")}
	if !f.available {
		logger.Warnf("file utility not found on PATH, content types will be empty")
	}
	return f
}

func (f *FileTypeIdentifier) Identify(ctx context.Context, path string) (string, error) {
	if !f.available {
		return "", nil
	}
	if err := validatePath(path); err != nil {
		return "", err
	}

	out, err := runTool(ctx, defaultTimeout, "file", "--brief", path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
