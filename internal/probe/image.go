package probe

import (
	"context"
	"image"
	"os"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ImageProber reads image dimensions in-process and, for formats carrying
// EXIF data, the capture date and camera model.
type ImageProber struct{}

func NewImageProber() *ImageProber {
	return &ImageProber{}
}

func (p *ImageProber) Probe(_ context.Context, path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		// Not a decodable image; no metadata rather than a scan error.
		return nil, nil
	}

	fields := Fields{
		"width":  cfg.Width,
		"height": cfg.Height,
		"format": format,
	}

	if format == "jpeg" || format == "tiff" {
		if _, err := f.Seek(0, 0); err == nil {
			addExifFields(f, fields)
		}
	}
	return fields, nil
}

// addExifFields extracts capture date and camera model. The original
// capture timestamp is preferred over the generic modified one. Dates
// before the Unix epoch are garbage from corrupt headers and discarded.
func addExifFields(f *os.File, fields Fields) {
	x, err := exif.Decode(f)
	if err != nil {
		return
	}

	if taken, ok := exifDate(x, exif.DateTimeOriginal); ok {
		fields["date_taken"] = taken.Format(time.RFC3339)
	} else if taken, ok := exifDate(x, exif.DateTime); ok {
		fields["date_taken"] = taken.Format(time.RFC3339)
	}

	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil && model != "" {
			fields["camera_model"] = strings.TrimSpace(model)
		}
	}
}

var exifTimeLayouts = []string{
	"2006:01:02 15:04:05",
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05Z07:00",
	time.RFC3339,
}

func exifDate(x *exif.Exif, field exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(field)
	if err != nil || tag == nil {
		return time.Time{}, false
	}
	return parseExifTime(tag)
}

func parseExifTime(tag *tiff.Tag) (time.Time, bool) {
	raw, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	return parseExifTimeString(raw)
}

func parseExifTimeString(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range exifTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Before(time.Unix(0, 0)) {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
