package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTempo_RecoversKnownPeriodicSignal(t *testing.T) {
	const frameRate = 100.0 // frames/sec
	const bpm = 120.0
	periodFrames := int(60.0 * frameRate / bpm)

	envelope := make([]float64, periodFrames*20)
	for i := range envelope {
		if i%periodFrames == 0 {
			envelope[i] = 1
		}
	}

	got := EstimateTempo(envelope, frameRate)
	assert.InDelta(t, bpm, got, 2.0)
}

func TestEstimateTempo_ReturnsZeroForTooShortEnvelope(t *testing.T) {
	assert.Equal(t, 0.0, EstimateTempo([]float64{1}, 100))
}

func TestEstimateTempo_ReturnsZeroForInvalidFrameRate(t *testing.T) {
	assert.Equal(t, 0.0, EstimateTempo([]float64{1, 2, 3}, 0))
}

func TestOnsetEnvelope_HalfWaveRectifiesIncreases(t *testing.T) {
	rms := []float64{1, 2, 1, 3}
	env := OnsetEnvelope(rms)
	assert.Equal(t, []float64{0, 1, 0, 2}, env)
}

func TestFrameRMS_ComputesPerFrameEnergy(t *testing.T) {
	samples := []float64{1, 1, 1, 1, 0, 0, 0, 0}
	frames := FrameRMS(samples, 4)
	assert.Len(t, frames, 2)
	assert.InDelta(t, 1.0, frames[0], 1e-9)
	assert.InDelta(t, 0.0, frames[1], 1e-9)
	assert.True(t, math.IsNaN(frames[1]) == false)
}
