package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText_LowercasesAndStripsPunctuation(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeText("Hello, World!!"))
}

func TestNormalizeText_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b", NormalizeText("a    \t b"))
}

func TestNormalizeText_IsIdempotent(t *testing.T) {
	once := NormalizeText("Héllo -- World")
	twice := NormalizeText(once)
	assert.Equal(t, once, twice)
}

func TestCleanLyricLine_StripsBracketedHeaders(t *testing.T) {
	assert.Equal(t, "", CleanLyricLine("[Chorus]"))
	assert.Equal(t, "sing it", CleanLyricLine("[Verse 1] sing it"))
}

func TestCleanLyricLine_DropsJunkKeywordLines(t *testing.T) {
	assert.Equal(t, "", CleanLyricLine("Instrumental"))
	assert.Equal(t, "", CleanLyricLine("ad-lib"))
}

func TestCleanLyricLine_DropsJunkSubstrings(t *testing.T) {
	assert.Equal(t, "", CleanLyricLine("50 ContributorsSong Lyrics"))
}

func TestCleanLyricLine_KeepsOrdinaryLine(t *testing.T) {
	assert.Equal(t, "this is a real lyric", CleanLyricLine("this is a real lyric"))
}

func TestCleanSearchTerm_StripsOfficialVideoSuffix(t *testing.T) {
	assert.Equal(t, "some song", CleanSearchTerm("Some Song (Official Video)"))
}

func TestPrimaryArtist_SplitsOnFeaturing(t *testing.T) {
	assert.Equal(t, "Artist One", PrimaryArtist("Artist One feat. Artist Two"))
}

func TestPrimaryArtist_SplitsOnAmpersand(t *testing.T) {
	assert.Equal(t, "Artist One", PrimaryArtist("Artist One & Artist Two"))
}
