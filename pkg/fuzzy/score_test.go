package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio_IdenticalStringsScoreMax(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("hello world", "hello world"))
}

func TestRatio_EmptyStringsScoreMax(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("", ""))
}

func TestRatio_CompletelyDifferentScoresLow(t *testing.T) {
	assert.Less(t, Ratio("abc", "xyz"), 50.0)
}

func TestPartialRatio_SubstringMatchesHigh(t *testing.T) {
	assert.Greater(t, PartialRatio("new york", "new york city"), 90.0)
}

func TestTokenSortRatio_IgnoresWordOrder(t *testing.T) {
	assert.Equal(t, 100.0, TokenSortRatio("lazy fox jumps", "jumps lazy fox"))
}

func TestWRatio_NormalizesBeforeScoring(t *testing.T) {
	assert.Greater(t, WRatio("Hello, World!", "hello world"), 95.0)
}

func TestWRatio_EmptyAfterNormalizationScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, WRatio("???", "abc"))
}
