package alignment

import "github.com/karaokeforge/pipeline/domain/model"

// buildSegment turns one lyric line's words plus whatever anchors
// matchWord found for them into a timed KaraokeSegment. Un-anchored words
// get linearly interpolated between their neighboring anchors; a line with
// no anchors at all falls back to uniform distribution starting at
// fallbackTime.
func buildSegment(words []string, anchors []*model.Word, fallbackTime, totalDuration float64) *model.KaraokeSegment {
	if len(words) == 0 {
		return nil
	}

	resolved := make([]model.Word, len(words))
	anchorCount := 0
	for _, a := range anchors {
		if a != nil {
			anchorCount++
		}
	}

	switch {
	case anchorCount == 0:
		distributeUniformly(words, resolved, fallbackTime, totalDuration)
	default:
		interpolateGaps(words, anchors, resolved, fallbackTime, totalDuration)
	}

	seg := model.KaraokeSegment{
		Start: resolved[0].Start,
		End:   resolved[len(resolved)-1].End,
		Text:  joinWords(words),
		Words: resolved,
	}
	seg.Repair()
	if len(seg.Words) == 0 {
		return nil
	}
	return &seg
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

func wordDuration(text string) float64 {
	d := float64(len(text)) * WordDurationPerChar
	if d < MinWordDuration {
		d = MinWordDuration
	}
	if d > MaxWordDuration {
		d = MaxWordDuration
	}
	return d
}

// distributeUniformly lays words out back-to-back starting at start, each
// sized by wordDuration plus a small inter-word gap. Used when a line
// matched no anchors at all.
func distributeUniformly(texts []string, out []model.Word, start, totalDuration float64) {
	t := start
	if t > totalDuration {
		t = totalDuration
	}
	for i, text := range texts {
		d := wordDuration(text)
		out[i] = model.Word{Text: text, Start: t, End: t + d}
		t += d + InterWordGap
	}
}

// interpolateGaps fills in the times for every un-anchored word between
// (and around) the anchors that matchWord found, by linear interpolation
// for interior gaps and fixed-duration extrapolation at the ends.
func interpolateGaps(texts []string, anchors []*model.Word, out []model.Word, fallbackTime, totalDuration float64) {
	n := len(texts)

	// Copy anchors through verbatim first.
	for i, a := range anchors {
		if a != nil {
			out[i] = *a
		}
	}

	// Leading gap: words before the first anchor, extrapolated backward
	// from it at uniform per-word duration.
	first := indexOfFirstAnchor(anchors)
	if first > 0 {
		end := out[first].Start
		t := end
		for i := first - 1; i >= 0; i-- {
			d := wordDuration(texts[i])
			t -= d + InterWordGap
			out[i] = model.Word{Text: texts[i], Start: t, End: t + d}
		}
		if out[0].Start < 0 {
			shiftForward(out[:first], -out[0].Start)
		}
	} else if first == -1 {
		// No anchors resolved for this line at all; caller routes this
		// through distributeUniformly instead, but guard regardless.
		distributeUniformly(texts, out, fallbackTime, totalDuration)
		return
	}

	// Interior + trailing gaps: walk anchor to anchor, interpolating
	// linearly; past the last anchor, extrapolate forward.
	lastAnchor := first
	for i := first + 1; i < n; i++ {
		if anchors[i] != nil {
			fillLinear(texts, out, lastAnchor, i)
			lastAnchor = i
		}
	}
	if lastAnchor < n-1 {
		t := out[lastAnchor].End
		for i := lastAnchor + 1; i < n; i++ {
			d := wordDuration(texts[i])
			start := t + InterWordGap
			out[i] = model.Word{Text: texts[i], Start: start, End: start + d}
			t = start + d
		}
	}
}

func indexOfFirstAnchor(anchors []*model.Word) int {
	for i, a := range anchors {
		if a != nil {
			return i
		}
	}
	return -1
}

// fillLinear fills texts[lo+1:hi] (exclusive of the anchors at lo and hi)
// by distributing them evenly across the time span between the two
// anchors.
func fillLinear(texts []string, out []model.Word, lo, hi int) {
	gapWords := hi - lo - 1
	if gapWords <= 0 {
		return
	}
	span := out[hi].Start - out[lo].End
	if span < 0 {
		span = 0
	}
	step := span / float64(gapWords+1)
	t := out[lo].End
	for i := lo + 1; i < hi; i++ {
		t += step
		d := wordDuration(texts[i])
		end := t + d
		if end > out[hi].Start {
			end = out[hi].Start
		}
		out[i] = model.Word{Text: texts[i], Start: t, End: end}
	}
}

func shiftForward(words []model.Word, delta float64) {
	for i := range words {
		words[i].Start += delta
		words[i].End += delta
	}
}
