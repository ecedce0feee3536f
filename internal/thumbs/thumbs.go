// Package thumbs generates width-capped JPEG thumbnails for image files,
// stored under a sharded directory tree keyed by file record id.
package thumbs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/drivedex/drivedex/internal/logger"
)

// ErrDegenerateImage marks a source whose width-capped scale would produce
// a zero-height thumbnail, e.g. a 1-pixel-tall panorama strip. Counted as
// a generation failure, never fatal.
var ErrDegenerateImage = errors.New("degenerate image dimensions")

// Generator writes thumbnails under BaseDir with widths capped at MaxWidth.
type Generator struct {
	BaseDir  string
	MaxWidth int
}

func NewGenerator(baseDir string, maxWidth int) *Generator {
	return &Generator{BaseDir: baseDir, MaxWidth: maxWidth}
}

// RelPath is the thumbnail location for a file record id, relative to the
// base directory: the zero-padded id split into three 2-digit shard
// segments, bounding per-directory fan-out to 100 entries at each level.
func RelPath(id int64) string {
	s := fmt.Sprintf("%06d", id)
	s = s[len(s)-6:]
	return filepath.Join(s[0:2], s[2:4], s[4:6], fmt.Sprintf("%d.jpg", id))
}

// Exists reports whether the recorded thumbnail path still refers to a
// file on disk. A recorded path whose file survives makes generation a
// no-op.
func (g *Generator) Exists(relPath string) bool {
	if relPath == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(g.BaseDir, relPath))
	return err == nil
}

// Generate creates the thumbnail for the source image and returns its
// relative path. The scale preserves aspect ratio and never upsizes;
// sources at or under MaxWidth are re-encoded at original size.
func (g *Generator) Generate(srcPath string, id int64) (string, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", srcPath, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return "", ErrDegenerateImage
	}

	if w > g.MaxWidth {
		targetH := h * g.MaxWidth / w
		if targetH == 0 {
			return "", ErrDegenerateImage
		}
		img = imaging.Resize(img, g.MaxWidth, targetH, imaging.Lanczos)
	}

	rel := RelPath(id)
	dst := filepath.Join(g.BaseDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("creating thumbnail directory: %w", err)
	}
	if err := imaging.Save(img, dst, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("saving thumbnail %s: %w", dst, err)
	}

	logger.Debugf("thumbnail written: %s", rel)
	return rel, nil
}
