// Package fuzzy implements text normalization and composite fuzzy string
// scoring used by the lyric provider's ranking contract and the alignment
// engine's per-word matching.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalization, lowercases, strips everything
// but word characters and whitespace, and collapses whitespace. It is
// idempotent: NormalizeText(NormalizeText(x)) == NormalizeText(x).
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastWasSpace = false
		default:
			// drop punctuation and symbols entirely, matching the
			// "strip non-word except whitespace" rule
		}
	}
	return strings.TrimSpace(b.String())
}

// SplitWords splits already-normalized text on whitespace.
func SplitWords(s string) []string {
	return strings.Fields(s)
}

// junkLineKeywords are words that, once a line is reduced to just that
// word (after stripping bracketed text), mark the whole line as non-lyric
// boilerplate rather than an actual sung line.
var junkLineKeywords = map[string]struct{}{
	"chorus": {}, "verse": {}, "bridge": {}, "intro": {}, "outro": {}, "solo": {},
	"instrumental": {}, "spoken": {}, "ad-lib": {}, "adlib": {},
	"applause": {}, "cheering": {}, "laughing": {}, "repeat": {}, "fades": {},
	"translation": {}, "interpretation": {}, "subtitles": {}, "caption": {}, "sync": {},
}

// junkSubstrings are phrases that mark a line as scraper boilerplate
// wherever they occur within it (contributor counts, recommendation
// widgets, embed codes).
var junkSubstrings = []string{
	"contributors",
	"you might also like",
	"embed",
	"pyong",
	"tracklist",
	"lyricscontributor",
	"albumdiscussion",
}

var onlyPunctuation = func(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// CleanLyricLine removes bracketed section headers (e.g. "[Chorus]") and
// known junk lines/markers from one line of scraped lyric text.
func CleanLyricLine(line string) string {
	line = strings.TrimSpace(stripBracketedHeaders(line))
	if line == "" {
		return ""
	}

	lower := strings.ToLower(line)
	if _, junk := junkLineKeywords[lower]; junk {
		return ""
	}
	if _, junk := junkLineKeywords[strings.ReplaceAll(lower, " ", "")]; junk {
		return ""
	}
	for _, marker := range junkSubstrings {
		if strings.Contains(lower, marker) {
			return ""
		}
	}
	if onlyPunctuation(line) {
		return ""
	}
	return line
}

func stripBracketedHeaders(line string) string {
	var b strings.Builder
	depth := 0
	for _, r := range line {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// CleanSearchTerm prepares a free-text title for use as a lyric-search
// query: normalizes, then strips common "official video"-style suffixes.
func CleanSearchTerm(title string) string {
	lower := NormalizeText(title)
	for _, suffix := range []string{"official video", "official audio", "official music video", "lyrics", "lyric video", "audio"} {
		lower = strings.TrimSuffix(strings.TrimSpace(lower), suffix)
	}
	return strings.TrimSpace(lower)
}

// PrimaryArtist extracts the first performer from an uploader/channel
// string, splitting on common multi-artist separators.
func PrimaryArtist(uploader string) string {
	for _, sep := range []string{",", "&", " feat", " ft", " featuring"} {
		if idx := strings.Index(strings.ToLower(uploader), sep); idx >= 0 {
			uploader = uploader[:idx]
		}
	}
	return strings.TrimSpace(uploader)
}
