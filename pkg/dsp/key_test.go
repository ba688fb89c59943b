package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectKey_PicksRotatedMajorProfile(t *testing.T) {
	chroma := rotate(majorProfile, 4) // E major
	result := DetectKey(chroma)
	assert.Equal(t, 4, result.RootIdx)
	assert.False(t, result.Minor)
	assert.Greater(t, result.Confidence, 0.9)
}

func TestDetectKey_PicksRotatedMinorProfile(t *testing.T) {
	chroma := rotate(minorProfile, 9) // A minor
	result := DetectKey(chroma)
	assert.Equal(t, 9, result.RootIdx)
	assert.True(t, result.Minor)
}

func TestDetectKey_FlatProfileStillReturnsAResult(t *testing.T) {
	var flat [12]float64
	for i := range flat {
		flat[i] = 1
	}
	result := DetectKey(flat)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
}
