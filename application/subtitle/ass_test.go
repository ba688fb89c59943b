package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karaokeforge/pipeline/domain/model"
)

func seg(start, end float64, text string, words []model.Word) model.KaraokeSegment {
	return model.KaraokeSegment{Start: start, End: end, Text: text, Words: words}
}

func w(text string, start, end float64) model.Word {
	return model.Word{Text: text, Start: start, End: end}
}

func TestGenerate_EmptyInputProducesNoDocument(t *testing.T) {
	out, err := Generate(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGenerate_BasicLineHasHeaderAndDialogue(t *testing.T) {
	segments := []model.KaraokeSegment{
		seg(1.0, 2.0, "hello world", []model.Word{w("hello", 1.0, 1.5), w("world", 1.5, 2.0)}),
	}

	out, err := Generate(segments, Options{})
	require.NoError(t, err)

	assert.True(t, strings.Contains(out, "[Script Info]"))
	assert.True(t, strings.Contains(out, "[V4+ Styles]"))
	assert.True(t, strings.Contains(out, "[Events]"))
	assert.True(t, strings.Contains(out, "Dialogue: 0,"))
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "world")
}

func TestGenerate_SkipsInvalidSegments(t *testing.T) {
	segments := []model.KaraokeSegment{
		seg(1.0, 1.0, "zero duration", []model.Word{w("zero", 1.0, 1.0)}), // end == start, invalid
		seg(2.0, 3.0, "", nil), // no words
		seg(4.0, 5.0, "valid", []model.Word{w("valid", 4.0, 5.0)}),
	}

	out, err := Generate(segments, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Dialogue: 0,"))
}

func TestGenerate_LongGapEmitsCountdownAndNextUp(t *testing.T) {
	segments := []model.KaraokeSegment{
		seg(0.0, 1.0, "first line", []model.Word{w("first", 0.0, 0.5), w("line", 0.5, 1.0)}),
		seg(10.0, 11.0, "second line", []model.Word{w("second", 10.0, 10.5), w("line", 10.5, 11.0)}),
	}

	out, err := Generate(segments, Options{})
	require.NoError(t, err)

	assert.Contains(t, out, ",NextUp,")
	assert.Contains(t, out, ",Countdown,")
}

func TestGenerate_ShortGapSkipsCues(t *testing.T) {
	segments := []model.KaraokeSegment{
		seg(0.0, 1.0, "first line", []model.Word{w("first", 0.0, 0.5), w("line", 0.5, 1.0)}),
		seg(2.0, 3.0, "second line", []model.Word{w("second", 2.0, 2.5), w("line", 2.5, 3.0)}),
	}

	out, err := Generate(segments, Options{})
	require.NoError(t, err)

	assert.NotContains(t, out, ",NextUp,")
	assert.NotContains(t, out, ",Countdown,")
}

func TestKDurationCS_ClampsToRange(t *testing.T) {
	assert.Equal(t, int64(MinKDurationCS), kDurationCS(0.0, 0.001))
	assert.Equal(t, int64(MaxKDurationCS), kDurationCS(0.0, 10.0))
}

func TestBGRColor_ConvertsOrderAndRejectsGarbage(t *testing.T) {
	assert.Equal(t, "0000FF", bgrColor("FF0000"))
	assert.Equal(t, "FFFFFF", bgrColor("bad"))
	assert.Equal(t, "FFFFFF", bgrColor("zzzzzz"))
}

func TestEscapeASSText_EscapesBraces(t *testing.T) {
	assert.Equal(t, `\{hi\}`, escapeASSText("{hi}"))
}

func TestFormatASSTime_Rounding(t *testing.T) {
	assert.Equal(t, "0:00:01.00", formatASSTime(1.0))
	assert.Equal(t, "0:01:05.50", formatASSTime(65.5))
	assert.Equal(t, "1:00:00.00", formatASSTime(3600.0))
}
