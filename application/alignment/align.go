// Package alignment implements the alignment engine (C9): producing
// per-word-timed karaoke segments from recognized speech plus, optionally,
// official lyric text, via fuzzy matching with temporal priors and gap
// interpolation.
package alignment

import (
	"sort"
	"strings"

	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/pkg/fuzzy"
	"github.com/karaokeforge/pipeline/pkg/logger"
)

// Tuning constants per the alignment contract. BaseWindow shrinks to
// ShrunkWindow after a successful match; a failed match at BaseWindow
// retries once at ExtendedWindow before giving up on that word.
const (
	BaseWindow      = 50
	ShrunkWindow    = 35
	ExtendedWindow  = 100
	BaseTolerance   = 5.0  // seconds
	FallbackTolerance = 15.0 // seconds, used with ExtendedWindow
	MinMatchThreshold = 50.0
	TemporalBonusMax  = 20.0
	PositionalBonusMax = 2.0

	MinWordDuration = 0.15
	MaxWordDuration = 0.5
	WordDurationPerChar = 0.06
	InterWordGap        = 0.05

	OverlapGap = 0.05
)

// recognizedWord is one flattened word from the recognized transcript,
// carrying both its original and normalized text.
type recognizedWord struct {
	text     string
	norm     string
	start    float64
	end      float64
}

// Engine runs the two-phase alignment algorithm.
type Engine struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Engine {
	if log == nil {
		log, _ = logger.New(false)
	}
	return &Engine{log: log}
}

// AlignNone validates and repairs recognized segments when no official
// lyrics are available: filters invalid words and clamps segment bounds
// to the first/last word.
func (e *Engine) AlignNone(recognized []model.KaraokeSegment) []model.KaraokeSegment {
	out := make([]model.KaraokeSegment, 0, len(recognized))
	for _, seg := range recognized {
		seg.Repair()
		if len(seg.Words) == 0 {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// AlignOfficial runs the full two-phase algorithm against official lyric
// lines. If it yields zero segments but recognized input existed, it falls
// back to AlignNone per the failure-semantics contract.
func (e *Engine) AlignOfficial(officialLines []string, recognized []model.KaraokeSegment) []model.KaraokeSegment {
	words := flattenWords(recognized)
	segments := e.alignLines(officialLines, words)

	if len(segments) == 0 && len(recognized) > 0 {
		e.log.Warn("alignment produced zero segments, falling back to recognized transcript")
		return e.AlignNone(recognized)
	}

	model.RepairOverlaps(segments, OverlapGap)
	return segments
}

// AlignCustom runs the identical algorithm with user-provided text taking
// the role of official lyrics.
func (e *Engine) AlignCustom(customText string, recognized []model.KaraokeSegment) []model.KaraokeSegment {
	lines := splitLines(customText)
	return e.AlignOfficial(lines, recognized)
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// flattenWords builds the flat, start-sorted sequence W of every recognized
// word across all segments.
func flattenWords(segments []model.KaraokeSegment) []recognizedWord {
	var words []recognizedWord
	for _, seg := range segments {
		for _, w := range seg.Words {
			words = append(words, recognizedWord{
				text: w.Text, norm: fuzzy.NormalizeText(w.Text), start: w.Start, end: w.End,
			})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].start < words[j].start })
	return words
}

// matchState tracks the moving search window's cursor across lines.
type matchState struct {
	cursor int // index into words of the next expected search position
	window int
}

func (e *Engine) alignLines(lines []string, words []recognizedWord) []model.KaraokeSegment {
	if len(words) == 0 {
		return nil
	}

	state := &matchState{cursor: 0, window: BaseWindow}
	segments := make([]model.KaraokeSegment, 0, len(lines))

	totalDuration := words[len(words)-1].end

	for _, line := range lines {
		lineWords := fuzzy.SplitWords(fuzzy.NormalizeText(line))
		if len(lineWords) == 0 {
			continue
		}

		anchors := make([]*model.Word, len(lineWords))
		originalWords := splitOriginalWords(line, len(lineWords))

		expectedTime := e.expectedTimeForCursor(state.cursor, words)

		for i, lw := range lineWords {
			match, ok := e.matchWord(lw, words, state, expectedTime)
			if ok {
				w := words[match]
				anchors[i] = &model.Word{Text: originalWords[i], Start: w.start, End: w.end}
				state.cursor = match + 1
				state.window = ShrunkWindow
				expectedTime = w.end
			}
		}

		seg := buildSegment(originalWords, anchors, expectedTime, totalDuration)
		if seg != nil {
			segments = append(segments, *seg)
		}
	}

	return segments
}

// expectedTimeForCursor estimates the playback time the next line should
// start near, based on the current cursor position in the recognized
// stream.
func (e *Engine) expectedTimeForCursor(cursor int, words []recognizedWord) float64 {
	if cursor >= len(words) {
		if len(words) == 0 {
			return 0
		}
		return words[len(words)-1].end
	}
	return words[cursor].start
}

// matchWord scores candidates in the current window and returns the index
// of the best match in words, retrying with an extended window/tolerance
// once if the base window finds nothing above threshold.
func (e *Engine) matchWord(target string, words []recognizedWord, state *matchState, expectedTime float64) (int, bool) {
	if idx, ok := e.searchWindow(target, words, state.cursor, state.window, BaseTolerance); ok {
		return idx, true
	}
	if idx, ok := e.searchWindow(target, words, state.cursor, ExtendedWindow, FallbackTolerance); ok {
		return idx, true
	}
	return 0, false
}

func (e *Engine) searchWindow(target string, words []recognizedWord, cursor, window int, tolerance float64) (int, bool) {
	// Small backward lookback lets the first word of a line re-match a
	// word the previous line's window already passed, which happens when
	// recognized speech runs slightly ahead of the official line breaks.
	lookback := 3
	lo := cursor - lookback
	if lo < 0 {
		lo = 0
	}
	hi := cursor + window
	if hi > len(words) {
		hi = len(words)
	}

	bestIdx := -1
	bestScore := -1.0
	expectedTime := e.expectedTimeForCursor(cursor, words)

	for i := lo; i < hi; i++ {
		w := words[i]
		textScore := scoreText(target, w.norm)

		score := textScore
		if tolerance > 0 {
			dt := w.start - expectedTime
			if dt < 0 {
				dt = -dt
			}
			if dt <= tolerance {
				score += TemporalBonusMax * (1 - dt/tolerance)
			}
		}
		// Small positional bonus favoring earlier candidates at equal
		// text scores.
		positionalBonus := PositionalBonusMax * (1 - float64(i-lo)/float64(hi-lo+1))
		score += positionalBonus

		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestScore >= MinMatchThreshold {
		return bestIdx, true
	}
	return 0, false
}

// scoreText weights short words' scoring differently via fuzzy.WRatio,
// which already applies that weighting internally.
func scoreText(a, b string) float64 {
	return fuzzy.WRatio(a, b)
}

// splitOriginalWords splits line into exactly n display words (falling
// back to the normalized split count if punctuation caused a mismatch).
func splitOriginalWords(line string, n int) []string {
	fields := strings.Fields(line)
	if len(fields) == n {
		return fields
	}
	// Fall back to normalized words as the display text too; this only
	// happens when punctuation-only tokens were dropped by normalization.
	return fuzzy.SplitWords(fuzzy.NormalizeText(line))
}
