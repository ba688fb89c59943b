package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsWellFormedSegment(t *testing.T) {
	s := KaraokeSegment{
		Start: 0, End: 2, Text: "hi there",
		Words: []Word{{Text: "hi", Start: 0, End: 1}, {Text: "there", Start: 1, End: 2}},
	}
	assert.NoError(t, s.Validate())
}

func TestValidate_RejectsNoWords(t *testing.T) {
	s := KaraokeSegment{Start: 0, End: 1}
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsOverlappingWords(t *testing.T) {
	s := KaraokeSegment{
		Start: 0, End: 2,
		Words: []Word{{Text: "a", Start: 0, End: 1.5}, {Text: "b", Start: 1, End: 2}},
	}
	assert.Error(t, s.Validate())
}

func TestValidate_RejectsWordOutsideBounds(t *testing.T) {
	s := KaraokeSegment{
		Start: 0, End: 1,
		Words: []Word{{Text: "a", Start: 0, End: 2}},
	}
	assert.Error(t, s.Validate())
}

func TestRepair_DropsEmptyAndInvalidWords(t *testing.T) {
	s := KaraokeSegment{
		Words: []Word{
			{Text: "", Start: 0, End: 1},
			{Text: "bad", Start: 2, End: 1},
			{Text: "ok", Start: 0, End: 1},
		},
	}
	s.Repair()
	require.Len(t, s.Words, 1)
	assert.Equal(t, "ok", s.Words[0].Text)
}

func TestRepair_SortsAndClampsOverlaps(t *testing.T) {
	s := KaraokeSegment{
		Words: []Word{
			{Text: "second", Start: 1, End: 2},
			{Text: "first", Start: 0, End: 1.5},
		},
	}
	s.Repair()
	require.Len(t, s.Words, 2)
	assert.Equal(t, "first", s.Words[0].Text)
	assert.Equal(t, "second", s.Words[1].Text)
	assert.GreaterOrEqual(t, s.Words[1].Start, s.Words[0].End)
	assert.Equal(t, s.Words[0].Start, s.Start)
	assert.Equal(t, s.Words[1].End, s.End)
}

func TestRepairOverlaps_SplitsOverlappingSegmentsWithGap(t *testing.T) {
	segments := []KaraokeSegment{
		{Start: 0, End: 2, Words: []Word{{Text: "a", Start: 0, End: 2}}},
		{Start: 1.5, End: 3, Words: []Word{{Text: "b", Start: 1.5, End: 3}}},
	}
	RepairOverlaps(segments, 0.1)
	assert.Less(t, segments[0].End, segments[1].Start)
	assert.InDelta(t, 0.1, segments[1].Start-segments[0].End, 1e-9)
}

func TestRepairOverlaps_LeavesNonOverlappingSegmentsUntouched(t *testing.T) {
	segments := []KaraokeSegment{
		{Start: 0, End: 1, Words: []Word{{Text: "a", Start: 0, End: 1}}},
		{Start: 2, End: 3, Words: []Word{{Text: "b", Start: 2, End: 3}}},
	}
	RepairOverlaps(segments, 0.1)
	assert.Equal(t, 1.0, segments[0].End)
	assert.Equal(t, 2.0, segments[1].Start)
}
