package ffmpeg

import (
	"fmt"
	"math"
)

// AddAMerge merges n mono/stereo input streams into one stream with
// inputs*channels channels, the first stage of the instrumental mixdown.
func (b *FilterChainBuilder) AddAMerge(inputs int) *FilterChainBuilder {
	b.filters = append(b.filters, fmt.Sprintf("amerge=inputs=%d", inputs))
	return b
}

// AddPan folds a merged multi-channel stream back down to stereo with an
// equal-weight sum of the source channels, per channel.
func (b *FilterChainBuilder) AddPan(channels int) *FilterChainBuilder {
	b.filters = append(b.filters, buildPanExpr(channels))
	return b
}

func buildPanExpr(channels int) string {
	terms := func(offset int) string {
		s := ""
		for i := 0; i < channels; i++ {
			if i > 0 {
				s += "+"
			}
			s += fmt.Sprintf("%.3f*c%d", 1.0/float64(channels), offset+i)
		}
		return s
	}
	return fmt.Sprintf("pan=stereo|c0=%s|c1=%s", terms(0), terms(channels))
}

// AddDynAudNorm applies dynamic-range normalization as a peak-safety
// filter after mixing stems together.
func (b *FilterChainBuilder) AddDynAudNorm() *FilterChainBuilder {
	b.filters = append(b.filters, "dynaudnorm")
	return b
}

// AddGlobalPitch shifts pitch by semitones while preserving tempo, using
// asetrate (resample-as-pitch-shift) immediately compensated by atempo so
// playback speed is unchanged: pitch=2^(s/12), tempo=1.
func (b *FilterChainBuilder) AddGlobalPitch(semitones float64, sampleRate int) *FilterChainBuilder {
	factor := semitonesToFactor(semitones)
	newRate := int(float64(sampleRate) * factor)
	b.filters = append(b.filters,
		fmt.Sprintf("asetrate=%d", newRate),
		fmt.Sprintf("aresample=%d", sampleRate),
	)
	b.filters = append(b.filters, atempoChain(1.0/factor)...)
	return b
}

// AddLegacyPitchShift shifts pitch by a raw playback-rate factor without
// tempo compensation (pitch and tempo both move together), clamped to
// [0.5,2.0].
func (b *FilterChainBuilder) AddLegacyPitchShift(factor float64, sampleRate int) *FilterChainBuilder {
	if factor < 0.5 {
		factor = 0.5
	}
	if factor > 2.0 {
		factor = 2.0
	}
	newRate := int(float64(sampleRate) * factor)
	b.filters = append(b.filters,
		fmt.Sprintf("asetrate=%d", newRate),
		fmt.Sprintf("aresample=%d", sampleRate),
	)
	return b
}

func semitonesToFactor(semitones float64) float64 {
	return math.Exp2(semitones / 12.0)
}

// atempoChain splits a single large tempo factor into a chain of atempo
// filters, since ffmpeg's atempo only accepts factors in [0.5,2.0].
func atempoChain(factor float64) []string {
	var chain []string
	for factor > 2.0 {
		chain = append(chain, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		chain = append(chain, "atempo=0.5")
		factor /= 0.5
	}
	chain = append(chain, fmt.Sprintf("atempo=%.6f", factor))
	return chain
}
