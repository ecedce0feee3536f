package probe

import (
	"context"
	"os"

	"github.com/dhowden/tag"
)

// AudioTagProber reads embedded audio tags (artist, album, title, year)
// in-process. Runs alongside the ffprobe stream probe for audio files;
// the two field sets are merged, stream fields winning on conflict.
type AudioTagProber struct{}

func NewAudioTagProber() *AudioTagProber {
	return &AudioTagProber{}
}

func (p *AudioTagProber) Probe(_ context.Context, path string) (Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Untagged or unsupported container; nothing to report.
		return nil, nil
	}

	fields := Fields{}
	if v := m.Title(); v != "" {
		fields["title"] = v
	}
	if v := m.Artist(); v != "" {
		fields["artist"] = v
	}
	if v := m.Album(); v != "" {
		fields["album"] = v
	}
	if v := m.Genre(); v != "" {
		fields["genre"] = v
	}
	if y := m.Year(); y > 0 {
		fields["year"] = y
	}
	if track, _ := m.Track(); track > 0 {
		fields["track"] = track
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}
