package ffmpeg

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/karaokeforge/pipeline/domain/model"
)

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
	Size     string `json:"size"`
	Name     string `json:"format_name"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// ProbeMetadata runs ffprobe via Executor and parses the result into
// model.AudioMetadata.
func ProbeMetadata(ctx context.Context, e *Executor, path string) (*model.AudioMetadata, error) {
	raw, err := e.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	meta := &model.AudioMetadata{Format: out.Format.Name}
	if secs, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		meta.Duration = time.Duration(secs * float64(time.Second))
	}
	if br, err := strconv.Atoi(out.Format.BitRate); err == nil {
		meta.Bitrate = br
	}
	if sz, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
		meta.Size = sz
	}

	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		meta.Codec = s.CodecName
		meta.Channels = s.Channels
		if sr, err := strconv.Atoi(s.SampleRate); err == nil {
			meta.SampleRate = sr
		}
		break
	}

	return meta, nil
}
