// Package analyzer implements the audio analyzer (C7): BPM and key
// detection over a canonical WAV file.
package analyzer

import (
	"context"
	"os"

	"github.com/go-audio/wav"
	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/pkg/dsp"
)

// frameSize is the window length (samples) used for chroma and RMS
// framing; at 44.1kHz this is roughly 93ms, enough frequency resolution
// for pitch-class binning without smearing key changes within a song.
const frameSize = 4096

// Analyzer implements ports.AudioAnalyzer on top of pkg/dsp.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

// Analyze decodes wavPath and returns tempo (BPM, nearest 0.1), estimated
// key ("<root>[m]"), and a confidence in [0,1].
func (a *Analyzer) Analyze(ctx context.Context, wavPath string) (float64, string, float64, error) {
	samples, sampleRate, err := decodeMono(wavPath)
	if err != nil {
		return 0, "", 0, err
	}
	if len(samples) == 0 {
		return 0, "", 0, nil
	}

	var chromaFrames [][12]float64
	for i := 0; i+frameSize <= len(samples); i += frameSize {
		chromaFrames = append(chromaFrames, dsp.Chroma(samples[i:i+frameSize], sampleRate))
	}
	avgChroma := dsp.AverageChroma(chromaFrames)
	keyResult := dsp.DetectKey(avgChroma)
	keyStr := model.FormatKey(keyResult.RootIdx, keyResult.Minor)

	rms := dsp.FrameRMS(samples, frameSize/4)
	onsets := dsp.OnsetEnvelope(rms)
	frameRate := float64(sampleRate) / float64(frameSize/4)
	bpm := dsp.EstimateTempo(onsets, frameRate)

	return bpm, keyStr, keyResult.Confidence, nil
}

// decodeMono reads a PCM WAV file and downmixes to mono float64 samples in
// [-1,1].
func decodeMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if !dec.WasPCMAccessed() {
		return nil, 0, err
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	sampleRate := buf.Format.SampleRate

	n := len(buf.Data) / channels
	out := make([]float64, n)
	maxVal := float64(int(1) << (buf.SourceBitDepth - 1))
	if maxVal == 0 {
		maxVal = 32768
	}
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = (sum / float64(channels)) / maxVal
	}
	return out, sampleRate, nil
}
