package ffmpeg

import (
	"context"
	"strconv"

	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
)

// canonicalSampleRate and canonicalChannels define the fixed WAV format
// every input is normalized to before downstream analysis/separation.
const (
	canonicalSampleRate = 44100
	canonicalChannels   = 2
)

// Extractor implements ports.AudioExtractor by shelling out to ffmpeg.
type Extractor struct {
	exec    *Executor
	storage ports.StorageProvider
}

// NewExtractor creates an extractor backed by exec and storage (storage is
// used only for the existing-file short-circuit check).
func NewExtractor(exec *Executor, storage ports.StorageProvider) *Extractor {
	return &Extractor{exec: exec, storage: storage}
}

// extractionHighpassHz removes sub-audible rumble before separation/analysis
// ever see the signal; extractionLoudnormTarget/-TruePeak/-LRA are the
// loudnorm integrated-loudness (LUFS), true-peak (dBTP) and loudness-range
// targets applied at extraction.
const (
	extractionHighpassHz       = 80
	extractionLoudnormTarget   = -16.0
	extractionLoudnormTruePeak = -1.5
	extractionLoudnormLRA      = 11.0
)

// Extract normalizes inputPath into outputWAVPath as 44.1kHz stereo PCM16,
// applying a rumble-removing highpass and loudness normalization so the
// separator and analyzer always see a consistently leveled signal.
// If outputWAVPath already exists with size >= model.MinValidStemBytes, the
// extraction is elided.
func (x *Extractor) Extract(ctx context.Context, inputPath, outputWAVPath string) error {
	if exists, _ := x.storage.Exists(ctx, outputWAVPath); exists {
		if size, err := x.storage.Size(ctx, outputWAVPath); err == nil && size >= model.MinValidStemBytes {
			return nil
		}
	}

	chain := NewFilterChainBuilder().
		AddHighpass(extractionHighpassHz).
		AddLoudnorm(extractionLoudnormTarget, extractionLoudnormTruePeak, extractionLoudnormLRA).
		AddResample(canonicalSampleRate)

	args := []string{"-y", "-i", inputPath}
	if !chain.IsEmpty() {
		args = append(args, "-af", chain.Build())
	}
	args = append(args,
		"-ac", strconv.Itoa(canonicalChannels),
		"-c:a", "pcm_s16le",
		outputWAVPath,
	)
	return x.exec.Execute(ctx, args)
}
