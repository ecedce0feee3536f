package probe

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid absolute", "/mnt/drive/photos/img.jpg", false},
		{"valid with spaces", "/mnt/drive/my photos/img 1.jpg", false},
		{"valid consecutive dots in name", "/mnt/drive/photo..jpg", false},
		{"valid dotted directory", "/mnt/drive/backup..2019/img.jpg", false},
		{"empty", "", true},
		{"relative", "photos/img.jpg", true},
		{"traversal", "/mnt/drive/../etc/passwd", true},
		{"semicolon", "/mnt/drive/a;rm -rf.jpg", true},
		{"pipe", "/mnt/drive/a|b.jpg", true},
		{"backtick", "/mnt/drive/`id`.jpg", true},
		{"newline", "/mnt/drive/a\nb.jpg", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestParseFFProbeOutput(t *testing.T) {
	raw := []byte(`{
		"format": {"format_name": "matroska,webm", "duration": "5421.37", "bit_rate": "3500000"},
		"streams": [
			{"codec_type": "video", "codec_name": "hevc", "width": 1920, "height": 1080},
			{"codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 6},
			{"codec_type": "video", "codec_name": "mjpeg", "width": 120, "height": 90}
		]
	}`)

	fields, err := parseFFProbeOutput(raw)
	if err != nil {
		t.Fatalf("parseFFProbeOutput: %v", err)
	}
	if fields["container"] != "matroska,webm" {
		t.Errorf("container = %v", fields["container"])
	}
	if fields["video_codec"] != "hevc" {
		t.Errorf("video_codec = %v, want hevc (first video stream wins)", fields["video_codec"])
	}
	if fields["resolution"] != "1920x1080" {
		t.Errorf("resolution = %v", fields["resolution"])
	}
	if fields["audio_codec"] != "aac" {
		t.Errorf("audio_codec = %v", fields["audio_codec"])
	}
	if fields["channels"] != 6 {
		t.Errorf("channels = %v", fields["channels"])
	}
	if fields["duration_seconds"] != 5421.37 {
		t.Errorf("duration_seconds = %v", fields["duration_seconds"])
	}
}

func TestParseFFProbeOutputEmpty(t *testing.T) {
	fields, err := parseFFProbeOutput([]byte(`{}`))
	if err != nil {
		t.Fatalf("parseFFProbeOutput: %v", err)
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil for empty probe", fields)
	}
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing png: %v", err)
	}
	return path
}

func TestImageProberDimensions(t *testing.T) {
	path := writePNG(t, 640, 480)

	fields, err := NewImageProber().Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if fields["width"] != 640 || fields["height"] != 480 {
		t.Errorf("dimensions = %vx%v, want 640x480", fields["width"], fields["height"])
	}
	if fields["format"] != "png" {
		t.Errorf("format = %v, want png", fields["format"])
	}
}

func TestImageProberNotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}

	fields, err := NewImageProber().Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe on non-image errored: %v", err)
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil for undecodable file", fields)
	}
}

func TestAudioTagProberUntagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.bin")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02, 0x03}, 0644); err != nil {
		t.Fatal(err)
	}

	fields, err := NewAudioTagProber().Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe on untagged file errored: %v", err)
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil for untagged file", fields)
	}
}

func TestParseExifTimePre1970Discarded(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"2019:08:14 10:22:31", true},
		{"2019:08:14 10:22:31+02:00", true},
		{"1969:12:31 23:59:59", false},
		{"0000:00:00 00:00:00", false},
		{"not a date", false},
	}
	for _, tt := range tests {
		_, ok := parseExifTimeString(tt.raw)
		if ok != tt.want {
			t.Errorf("parseExifTimeString(%q) ok = %v, want %v", tt.raw, ok, tt.want)
		}
	}
}
