package thumbs

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestRelPathSharding(t *testing.T) {
	tests := []struct {
		id   int64
		want string
	}{
		{1, "00/00/01/1.jpg"},
		{42, "00/00/42/42.jpg"},
		{123456, "12/34/56/123456.jpg"},
		{987654321, "65/43/21/987654321.jpg"},
	}
	for _, tt := range tests {
		if got := RelPath(tt.id); got != tt.want {
			t.Errorf("RelPath(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	path := filepath.Join(dir, "src.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing png: %v", err)
	}
	return path
}

func TestGenerateCapsWidth(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 1600, 900)
	gen := NewGenerator(filepath.Join(dir, "thumbs"), 320)

	rel, err := gen.Generate(src, 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rel != RelPath(7) {
		t.Errorf("rel path = %q, want %q", rel, RelPath(7))
	}

	f, err := os.Open(filepath.Join(gen.BaseDir, rel))
	if err != nil {
		t.Fatalf("opening thumbnail: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if cfg.Width != 320 {
		t.Errorf("thumbnail width = %d, want 320", cfg.Width)
	}
	if cfg.Height != 180 {
		t.Errorf("thumbnail height = %d, want 180", cfg.Height)
	}
}

func TestGenerateNeverUpsizes(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 100, 80)
	gen := NewGenerator(filepath.Join(dir, "thumbs"), 320)

	rel, err := gen.Generate(src, 8)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	f, _ := os.Open(filepath.Join(gen.BaseDir, rel))
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 80 {
		t.Errorf("thumbnail = %dx%d, want original 100x80", cfg.Width, cfg.Height)
	}
}

func TestGenerateOnePixelTall(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 10000, 1)
	gen := NewGenerator(filepath.Join(dir, "thumbs"), 320)

	_, err := gen.Generate(src, 9)
	if !errors.Is(err, ErrDegenerateImage) {
		t.Errorf("Generate on 10000x1 source error = %v, want ErrDegenerateImage", err)
	}
	if gen.Exists(RelPath(9)) {
		t.Error("degenerate source still produced a thumbnail file")
	}
}

func TestGenerateUndecodableSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(src, []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}
	gen := NewGenerator(filepath.Join(dir, "thumbs"), 320)

	if _, err := gen.Generate(src, 10); err == nil {
		t.Error("Generate on undecodable source succeeded, want error")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	src := writePNG(t, dir, 200, 200)
	gen := NewGenerator(filepath.Join(dir, "thumbs"), 320)

	if gen.Exists(RelPath(11)) {
		t.Error("Exists true before generation")
	}
	rel, err := gen.Generate(src, 11)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !gen.Exists(rel) {
		t.Error("Exists false after generation")
	}
	if gen.Exists("") {
		t.Error("Exists true for empty path")
	}
}
