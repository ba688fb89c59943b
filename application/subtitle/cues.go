package subtitle

import (
	"fmt"
	"strings"
)

// renderCueBlock emits the "next up" preview and countdown dialogue events
// that fill a long instrumental gap before segStart, when that gap is wide
// enough to be worth announcing.
func renderCueBlock(b *strings.Builder, segStart, lastSegmentEnd float64, upcomingText string) {
	gap := segStart - lastSegmentEnd
	if gap < GapThresholdForCues {
		return
	}

	nextUpStart := maxF(lastSegmentEnd+0.1, segStart-CountdownDuration-LyricPrepLeadTime)
	nextUpEnd := maxF(nextUpStart+0.5, segStart-CountdownDuration-0.1)

	if nextUpEnd > nextUpStart {
		preview := upcomingText
		if len(preview) > 80 {
			preview = preview[:80] + "..."
		}
		fmt.Fprintf(b, "Dialogue: 1,%s,%s,NextUp,,0,0,0,,%s\n",
			formatASSTime(nextUpStart), formatASSTime(nextUpEnd), escapeASSText(preview))
	}

	steps := int(CountdownDuration / CountdownStep)
	for i := steps; i > 0; i-- {
		start := maxF(nextUpEnd, segStart-float64(i)*CountdownStep)
		end := segStart - float64(i-1)*CountdownStep - 0.05
		if end > start {
			fmt.Fprintf(b, "Dialogue: 2,%s,%s,Countdown,,0,0,0,,%d\n",
				formatASSTime(start), formatASSTime(end), i)
		}
	}
}

// formatASSTime renders seconds as ASS's H:MM:SS.CC timestamp format.
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalCS := int64(seconds*100 + 0.5)
	cs := totalCS % 100
	totalSeconds := totalCS / 100
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	mins := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, mins, secs, cs)
}
