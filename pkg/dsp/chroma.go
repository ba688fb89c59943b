// Package dsp implements the minimal digital signal processing the audio
// analyzer needs: a chroma profile for key detection and an
// autocorrelation-based tempo estimator. No library in the reference
// corpus offers chroma/FFT/beat-tracking primitives, so this package is a
// deliberate, narrowly-scoped stdlib implementation (math/cmplx only).
package dsp

import (
	"math"
	"math/cmplx"
)

// a4Frequency is the reference pitch (A4, in Hz) from which each DFT bin's
// frequency is mapped to one of the 12 pitch classes.
const a4Frequency = 440.0

// Chroma computes a 12-bin, L1-normalized chroma vector (pitch-class energy
// profile, C=0 .. B=11) for one frame of samples via a direct DFT. frame
// should be a windowed slice of mono samples; sampleRate is in Hz.
func Chroma(frame []float64, sampleRate int) [12]float64 {
	n := len(frame)
	var bins [12]float64
	if n == 0 {
		return bins
	}

	spectrum := dft(frame)
	for k := 1; k < n/2; k++ {
		freq := float64(k) * float64(sampleRate) / float64(n)
		if freq < 20 || freq > 5000 {
			continue
		}
		magnitude := cmplx.Abs(spectrum[k])
		pitchClass := freqToPitchClass(freq)
		bins[pitchClass] += magnitude
	}

	total := 0.0
	for _, v := range bins {
		total += v
	}
	if total > 0 {
		for i := range bins {
			bins[i] /= total
		}
	}
	return bins
}

// AverageChroma averages per-frame chroma vectors over time and
// re-normalizes, matching the analyzer's "averaged over time, L1-normalized"
// profile.
func AverageChroma(frames [][12]float64) [12]float64 {
	var avg [12]float64
	if len(frames) == 0 {
		return avg
	}
	for _, f := range frames {
		for i := 0; i < 12; i++ {
			avg[i] += f[i]
		}
	}
	total := 0.0
	for i := range avg {
		avg[i] /= float64(len(frames))
		total += avg[i]
	}
	if total > 0 {
		for i := range avg {
			avg[i] /= total
		}
	}
	return avg
}

func freqToPitchClass(freq float64) int {
	// semitone distance from A4, wrapped into pitch class 0=C .. 11=B.
	semitonesFromA4 := 12 * log2(freq/a4Frequency)
	pc := int(roundHalfAwayFromZero(semitonesFromA4)) % 12
	// A is pitch class 9 (C=0,C#=1,...,A=9,A#=10,B=11)
	pc = (pc + 9) % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}

func log2(x float64) float64 {
	return math.Log2(x)
}

func roundHalfAwayFromZero(x float64) float64 {
	return math.Round(x)
}

// dft computes the discrete Fourier transform directly (O(n^2)), adequate
// for the short analysis frames (a few thousand samples) this package
// processes; a full FFT is unnecessary machinery for the analyzer's
// once-per-job workload.
func dft(samples []float64) []complex128 {
	n := len(samples)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for t := 0; t < n; t++ {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += complex(samples[t], 0) * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum
	}
	return out
}
