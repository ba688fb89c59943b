package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karaokeforge/pipeline/domain/model"
)

func wordsFromTimeline(tokens []string, start, step float64) []model.Word {
	words := make([]model.Word, len(tokens))
	t := start
	for i, tok := range tokens {
		words[i] = model.Word{Text: tok, Start: t, End: t + step*0.8}
		t += step
	}
	return words
}

func segmentFromWords(words []model.Word) model.KaraokeSegment {
	seg := model.KaraokeSegment{Words: words, Text: joinWords(wordTexts(words))}
	seg.Repair()
	return seg
}

func wordTexts(words []model.Word) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.Text
	}
	return out
}

func TestAlignOfficial_ExactTranscript(t *testing.T) {
	e := New(nil)

	recognized := []model.KaraokeSegment{
		segmentFromWords(wordsFromTimeline([]string{"never", "gonna", "give", "you", "up"}, 0, 0.5)),
		segmentFromWords(wordsFromTimeline([]string{"never", "gonna", "let", "you", "down"}, 3, 0.5)),
	}

	lines := []string{"never gonna give you up", "never gonna let you down"}

	segments := e.AlignOfficial(lines, recognized)
	require.Len(t, segments, 2)

	assert.Equal(t, "never gonna give you up", segments[0].Text)
	assert.Equal(t, "never gonna let you down", segments[1].Text)
	for _, seg := range segments {
		assert.NoError(t, seg.Validate())
	}
	assert.True(t, segments[0].End <= segments[1].Start+1e-9)
}

func TestAlignOfficial_InterpolatesUnrecognizedWords(t *testing.T) {
	e := New(nil)

	// The recognizer dropped "gonna" entirely; alignment must still place
	// it via interpolation between its neighbors.
	recognized := []model.KaraokeSegment{
		segmentFromWords([]model.Word{
			{Text: "never", Start: 0.0, End: 0.4},
			{Text: "give", Start: 1.4, End: 1.8},
			{Text: "you", Start: 1.9, End: 2.2},
			{Text: "up", Start: 2.3, End: 2.6},
		}),
	}

	segments := e.AlignOfficial([]string{"never gonna give you up"}, recognized)
	require.Len(t, segments, 1)

	seg := segments[0]
	require.NoError(t, seg.Validate())
	require.Len(t, seg.Words, 5)
	assert.Equal(t, "gonna", seg.Words[1].Text)
	assert.Greater(t, seg.Words[1].Start, seg.Words[0].End-1e-9)
	assert.LessOrEqual(t, seg.Words[1].End, seg.Words[2].Start+1e-9)
}

func TestAlignOfficial_FallsBackToRecognizedWhenNoLyricLines(t *testing.T) {
	e := New(nil)

	recognized := []model.KaraokeSegment{
		segmentFromWords(wordsFromTimeline([]string{"completely", "unrelated", "audio"}, 0, 0.5)),
	}

	// No usable lyric lines at all (e.g. an empty official text blob);
	// the engine falls back to the recognized transcript rather than
	// producing zero segments.
	segments := e.AlignOfficial([]string{"", "   "}, recognized)

	require.Len(t, segments, 1)
	assert.Equal(t, recognized[0].Text, segments[0].Text)
}

func TestAlignOfficial_LowScoringLineStillUniformlyDistributed(t *testing.T) {
	e := New(nil)

	// Lines sharing no vocabulary with the recognized words still
	// produce a segment, with word times spread uniformly from the
	// current playback cursor rather than left unaligned.
	recognized := []model.KaraokeSegment{
		segmentFromWords(wordsFromTimeline([]string{"completely", "unrelated", "audio"}, 0, 0.5)),
	}

	segments := e.AlignOfficial([]string{"xyzzy plugh wibble"}, recognized)
	require.Len(t, segments, 1)
	assert.Equal(t, "xyzzy plugh wibble", segments[0].Text)
	assert.NoError(t, segments[0].Validate())
}

func TestAlignNone_DropsEmptySegments(t *testing.T) {
	e := New(nil)

	recognized := []model.KaraokeSegment{
		segmentFromWords(wordsFromTimeline([]string{"hello"}, 0, 0.5)),
		{Words: nil},
	}

	out := e.AlignNone(recognized)
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Words[0].Text)
}

func TestAlignCustom_SplitsOnNewlines(t *testing.T) {
	e := New(nil)

	recognized := []model.KaraokeSegment{
		segmentFromWords(wordsFromTimeline([]string{"hello", "world"}, 0, 0.5)),
	}

	segments := e.AlignCustom("hello world\n\n", recognized)
	require.Len(t, segments, 1)
	assert.Equal(t, "hello world", segments[0].Text)
}

func TestWordDuration_ClampsToRange(t *testing.T) {
	assert.Equal(t, MinWordDuration, wordDuration("a"))
	assert.Equal(t, MaxWordDuration, wordDuration("supercalifragilisticexpialidocious"))
}
