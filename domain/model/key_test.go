package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey_AcceptsSharpAndFlatSpellings(t *testing.T) {
	idx, minor, err := ParseKey("C#")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.False(t, minor)

	idx, minor, err = ParseKey("Db")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.False(t, minor)
}

func TestParseKey_RecognizesMinorSuffix(t *testing.T) {
	idx, minor, err := ParseKey("Am")
	require.NoError(t, err)
	assert.Equal(t, 9, idx)
	assert.True(t, minor)
}

func TestParseKey_RejectsUnknownRoot(t *testing.T) {
	_, _, err := ParseKey("H")
	assert.Error(t, err)
}

func TestFormatKey_WrapsNegativeAndLargeIndices(t *testing.T) {
	assert.Equal(t, "B", FormatKey(-1, false))
	assert.Equal(t, "C", FormatKey(12, false))
}

func TestTransposeKey_RoundTrips(t *testing.T) {
	up, err := TransposeKey("C", 5)
	require.NoError(t, err)
	down, err := TransposeKey(up, -5)
	require.NoError(t, err)
	assert.Equal(t, "C", down)
}

func TestTransposeKey_PreservesMinorFlag(t *testing.T) {
	out, err := TransposeKey("Am", 2)
	require.NoError(t, err)
	assert.Equal(t, "Bm", out)
}
