package probe

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/drivedex/drivedex/internal/logger"
)

// AVProber extracts container, codec, resolution and duration from video
// and audio files via ffprobe.
type AVProber struct {
	available bool
}

// NewAVProber probes for ffprobe once; when the tool is missing, every
// Probe call returns empty metadata.
func NewAVProber() *AVProber {
	p := &AVProber{available: toolAvailable("ffprobe")}
	if !p.available {
		logger.Warnf("ffprobe not found on PATH, audio/video metadata will be empty")
	}
	return p
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
}

func (p *AVProber) Probe(ctx context.Context, path string) (Fields, error) {
	if !p.available {
		return nil, nil
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}

	out, err := runTool(ctx, defaultTimeout, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	if err != nil {
		return nil, err
	}
	return parseFFProbeOutput(out)
}

func parseFFProbeOutput(out []byte) (Fields, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, err
	}

	fields := Fields{}
	if result.Format.FormatName != "" {
		fields["container"] = result.Format.FormatName
	}
	if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
		fields["duration_seconds"] = d
	}
	if br, err := strconv.Atoi(result.Format.BitRate); err == nil {
		fields["bitrate"] = br
	}
	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			if _, seen := fields["video_codec"]; seen {
				continue
			}
			fields["video_codec"] = s.CodecName
			fields["width"] = s.Width
			fields["height"] = s.Height
			if s.Width > 0 && s.Height > 0 {
				fields["resolution"] = strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
			}
		case "audio":
			if _, seen := fields["audio_codec"]; seen {
				continue
			}
			fields["audio_codec"] = s.CodecName
			if sr, err := strconv.Atoi(s.SampleRate); err == nil {
				fields["sample_rate"] = sr
			}
			if s.Channels > 0 {
				fields["channels"] = s.Channels
			}
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}
