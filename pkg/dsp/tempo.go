package dsp

import "math"

// EstimateTempo returns a BPM estimate (rounded to the nearest 0.1) from an
// onset-strength envelope via autocorrelation: the lag with the strongest
// self-similarity within the plausible tempo range is taken as the beat
// period.
func EstimateTempo(onsetEnvelope []float64, frameRate float64) float64 {
	const minBPM, maxBPM = 60.0, 200.0
	if len(onsetEnvelope) < 2 || frameRate <= 0 {
		return 0
	}

	minLag := int(frameRate * 60.0 / maxBPM)
	maxLag := int(frameRate * 60.0 / minBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(onsetEnvelope) {
		maxLag = len(onsetEnvelope) - 1
	}
	if maxLag <= minLag {
		return 0
	}

	bestLag := minLag
	bestScore := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		score := autocorrelationAt(onsetEnvelope, lag)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	bpm := 60.0 * frameRate / float64(bestLag)
	return math.Round(bpm*10) / 10
}

func autocorrelationAt(signal []float64, lag int) float64 {
	var sum float64
	n := len(signal) - lag
	for i := 0; i < n; i++ {
		sum += signal[i] * signal[i+lag]
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// OnsetEnvelope derives a simple percussive-onset strength envelope from
// frame-wise RMS energy: the half-wave-rectified first difference, which
// peaks at energy increases (likely note onsets).
func OnsetEnvelope(frameRMS []float64) []float64 {
	out := make([]float64, len(frameRMS))
	for i := 1; i < len(frameRMS); i++ {
		d := frameRMS[i] - frameRMS[i-1]
		if d > 0 {
			out[i] = d
		}
	}
	return out
}

// FrameRMS computes root-mean-square energy per fixed-size, non-overlapping
// frame of samples.
func FrameRMS(samples []float64, frameSize int) []float64 {
	if frameSize <= 0 {
		return nil
	}
	var frames []float64
	for i := 0; i < len(samples); i += frameSize {
		end := i + frameSize
		if end > len(samples) {
			end = len(samples)
		}
		var sumSq float64
		for _, s := range samples[i:end] {
			sumSq += s * s
		}
		n := end - i
		if n == 0 {
			continue
		}
		frames = append(frames, math.Sqrt(sumSq/float64(n)))
	}
	return frames
}
