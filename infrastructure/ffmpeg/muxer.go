package ffmpeg

import (
	"context"

	pkgerrors "github.com/karaokeforge/pipeline/pkg/errors"
)

// videoCRF, videoPreset, and audioBitrate are the muxer's fixed encoder
// targets.
const (
	videoCRF     = "20"
	videoPreset  = "medium"
	audioBitrate = "320k"
)

// Muxer implements ports.Muxer by composing the original video stream with
// the instrumental track and an optional subtitle overlay.
type Muxer struct {
	exec *Executor
}

func NewMuxer(exec *Executor) *Muxer {
	return &Muxer{exec: exec}
}

func (m *Muxer) audioFilter(pitchSemitones float64) string {
	if pitchSemitones == 0 {
		return ""
	}
	// The instrumental mixdown is written at 48 kHz; asetrate has to start
	// from the input's own rate for the tempo compensation to cancel out.
	b := NewFilterChainBuilder().AddGlobalPitch(pitchSemitones, 48000)
	return b.Build()
}

// MergeWithSubtitles burns subtitlePath onto videoPath's video stream and
// muxes it against the (optionally pitch-shifted) instrumental audio.
func (m *Muxer) MergeWithSubtitles(ctx context.Context, videoPath, instrumentalPath, subtitlePath, outputPath string, pitchSemitones float64) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", instrumentalPath,
		"-vf", "ass=" + escapeFilterPath(subtitlePath),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264", "-crf", videoCRF, "-preset", videoPreset,
		"-c:a", "aac", "-b:a", audioBitrate, "-ar", "48000",
		"-movflags", "+faststart",
		"-shortest",
	}
	if af := m.audioFilter(pitchSemitones); af != "" {
		args = append(args, "-af", af)
	}
	args = append(args, outputPath)
	return m.exec.Execute(ctx, args)
}

// MergeWithoutSubtitles muxes the original video stream against the
// instrumental audio. It first attempts to stream-copy the video (fast
// path); on failure it falls back to a full re-encode.
func (m *Muxer) MergeWithoutSubtitles(ctx context.Context, videoPath, instrumentalPath, outputPath string, pitchSemitones float64) error {
	af := m.audioFilter(pitchSemitones)

	copyArgs := []string{
		"-y",
		"-i", videoPath,
		"-i", instrumentalPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", audioBitrate, "-ar", "48000",
		"-movflags", "+faststart",
		"-shortest",
	}
	if af != "" {
		copyArgs = append(copyArgs, "-af", af)
	}
	copyArgs = append(copyArgs, outputPath)

	if err := m.exec.Execute(ctx, copyArgs); err == nil {
		return nil
	} else if _, ok := pkgerrors.As[*pkgerrors.FFmpegError](err); !ok {
		return err
	}

	reencodeArgs := []string{
		"-y",
		"-i", videoPath,
		"-i", instrumentalPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264", "-crf", videoCRF, "-preset", videoPreset,
		"-c:a", "aac", "-b:a", audioBitrate, "-ar", "48000",
		"-movflags", "+faststart",
		"-shortest",
	}
	if af != "" {
		reencodeArgs = append(reencodeArgs, "-af", af)
	}
	reencodeArgs = append(reencodeArgs, outputPath)
	return m.exec.Execute(ctx, reencodeArgs)
}

// escapeFilterPath escapes characters the ffmpeg filtergraph parser treats
// as special when a path is embedded in a filter argument.
func escapeFilterPath(path string) string {
	out := make([]rune, 0, len(path))
	for _, r := range path {
		switch r {
		case ':', '\\', '\'':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
