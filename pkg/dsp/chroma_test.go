package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sineWave(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func TestChroma_PeaksAtExpectedPitchClassForPureTone(t *testing.T) {
	const sampleRate = 8000
	// A4 = 440Hz -> pitch class 9.
	frame := sineWave(440.0, sampleRate, 1024)
	bins := Chroma(frame, sampleRate)

	maxIdx := 0
	for i, v := range bins {
		if v > bins[maxIdx] {
			maxIdx = i
		}
	}
	assert.Equal(t, 9, maxIdx)
}

func TestChroma_EmptyFrameReturnsZeroVector(t *testing.T) {
	bins := Chroma(nil, 8000)
	assert.Equal(t, [12]float64{}, bins)
}

func TestAverageChroma_NormalizesAcrossFrames(t *testing.T) {
	frames := [][12]float64{
		{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0},
	}
	avg := AverageChroma(frames)
	total := 0.0
	for _, v := range avg {
		total += v
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.5, avg[0], 1e-9)
	assert.InDelta(t, 0.5, avg[9], 1e-9)
}

func TestAverageChroma_EmptyInputReturnsZeroVector(t *testing.T) {
	assert.Equal(t, [12]float64{}, AverageChroma(nil))
}
