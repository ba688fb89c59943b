package subtitle

import (
	"fmt"
	"strings"

	"github.com/karaokeforge/pipeline/domain/model"
)

// renderLine emits one Dialogue event for seg, built from \k-tagged word
// spans: a leading \k tag soaks up any gap between the line's display start
// and the first word's actual start, and an inter-word \k tag soaks up any
// silent gap between consecutive words so the highlight sweep tracks real
// audio timing rather than assuming back-to-back words.
func renderLine(b *strings.Builder, seg model.KaraokeSegment) {
	displayStart := maxF(0.0, seg.Start-LeadTimeSeconds)
	displayEnd := maxF(seg.End+PersistSeconds, displayStart+MinLineDuration)

	var text strings.Builder

	initialDelayCS := int64(maxF(0, seg.Words[0].Start-displayStart)*100 + 0.5)
	if initialDelayCS > 0 {
		fmt.Fprintf(&text, `{\k%d}`, initialDelayCS)
	}

	for i, w := range seg.Words {
		kDuration := kDurationCS(w.Start, w.End)
		escaped := escapeASSText(strings.TrimSpace(w.Text))

		switch {
		case i == 0:
			fmt.Fprintf(&text, `{\k%d}%s`, kDuration, escaped)
		default:
			gapCS := int64(maxF(0, w.Start-seg.Words[i-1].End)*100 + 0.5)
			if gapCS > 0 {
				fmt.Fprintf(&text, `{\k%d} {\k%d}%s`, gapCS, kDuration, escaped)
			} else {
				fmt.Fprintf(&text, ` {\k%d}%s`, kDuration, escaped)
			}
		}
	}

	fmt.Fprintf(b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
		formatASSTime(displayStart), formatASSTime(displayEnd), text.String())
}

func kDurationCS(start, end float64) int64 {
	d := end - start
	if d < 0.01 {
		d = 0.01
	}
	cs := int64(d*100 + 0.5)
	if cs < MinKDurationCS {
		cs = MinKDurationCS
	}
	if cs > MaxKDurationCS {
		cs = MaxKDurationCS
	}
	return cs
}
