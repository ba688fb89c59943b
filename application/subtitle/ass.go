// Package subtitle implements the subtitle emitter (C10): rendering timed
// karaoke segments to an Advanced SubStation Alpha (.ass) document with
// per-word \k highlight tags, countdown cues, and "next up" previews across
// long instrumental gaps.
package subtitle

import (
	"fmt"
	"strings"

	"github.com/karaokeforge/pipeline/domain/model"
)

// Timing constants governing line display windows and karaoke tag clamps.
const (
	LeadTimeSeconds    = 0.30
	PersistSeconds     = 0.50
	MinLineDuration    = 1.0
	MinKDurationCS      = 5
	MaxKDurationCS      = 350
	GapThresholdForCues = 4.0
	CountdownDuration   = 3.0
	LyricPrepLeadTime   = 1.2
	CountdownStep       = 1.0
)

// DefaultFontName is used when the job does not select one explicitly.
const DefaultFontName = "Poppins Bold"

const assHeaderTemplate = `[Script Info]
Title: Karaoke Subtitles
ScriptType: v4.00+
WrapStyle: 0
ScaledBorderAndShadow: yes
YCbCr Matrix: None
PlayResX: 1920
PlayResY: 1080
Collisions: Normal

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,%[1]s,%[2]d,&H%[3]s%[4]s,&H%[5]s%[6]s,&H%[7]s%[8]s,&H%[9]s%[10]s,%[11]d,0,0,0,100,100,1.0,0,%[12]d,%[13].2f,%[14].2f,%[15]d,30,30,%[16]d,1
Style: Highlight,%[1]s,%[2]d,&H%[5]s%[6]s,&H%[3]s%[4]s,&H%[7]s%[8]s,&H%[9]s%[10]s,%[11]d,0,0,0,100,100,1.0,0,%[12]d,%[13].2f,%[14].2f,%[15]d,30,30,%[16]d,1
Style: Countdown,%[1]s,%[17]d,&H00FFFFFF,&H0000DDFF,&H50000000,&H80000000,-1,0,0,0,100,100,0,0,1,3,2,5,30,30,40,1
Style: NextUp,%[1]s,%[18]d,&H88%[4]s,&H88%[6]s,&H60%[8]s,&H80%[10]s,0,0,0,0,100,100,0.5,0,%[12]d,%[19].2f,%[20].2f,8,30,30,80,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// Colors selects the palette burned into the generated style block. Each
// field is a 6-digit RRGGBB hex string; Alphas use ASS's inverted alpha
// convention (00 = opaque, FF = fully transparent).
type Colors struct {
	Primary   string
	Secondary string
	Outline   string
	Back      string

	PrimaryAlpha   string
	SecondaryAlpha string
	OutlineAlpha   string
	BackAlpha      string
}

// DefaultColors matches the palette used across the corpus's karaoke
// styling: white lead-in text highlighting to cyan, black outline/shadow.
func DefaultColors() Colors {
	return Colors{
		Primary: "FFFFFF", Secondary: "00DDFF", Outline: "000000", Back: "000000",
		PrimaryAlpha: "00", SecondaryAlpha: "00", OutlineAlpha: "40", BackAlpha: "60",
	}
}

// Options configures one ASS render.
type Options struct {
	FontName string
	FontSize int
	Position model.SubtitlePosition
	Colors   Colors
}

// Generate renders segments to a complete .ass document. It returns an
// error only for structurally invalid options; segments with no valid
// words are skipped individually rather than failing the whole render, and
// an entirely empty result (no valid segments) returns ("", nil) so the
// caller can treat "nothing to subtitle" as a no-op rather than a failure.
func Generate(segments []model.KaraokeSegment, opts Options) (string, error) {
	if opts.FontName == "" {
		opts.FontName = DefaultFontName
	}
	if opts.FontSize < 10 {
		opts.FontSize = 30
	}

	valid := validSegments(segments)
	if len(valid) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(renderHeader(opts))
	b.WriteString("\n")

	lastEnd := 0.0
	for i, seg := range valid {
		if i > 0 {
			renderCueBlock(&b, seg.Start, lastEnd, seg.Text)
		}
		renderLine(&b, seg)
		lastEnd = seg.End
	}

	return b.String(), nil
}

func validSegments(segments []model.KaraokeSegment) []model.KaraokeSegment {
	out := make([]model.KaraokeSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.End <= seg.Start || strings.TrimSpace(seg.Text) == "" || len(seg.Words) == 0 {
			continue
		}
		ok := true
		for _, w := range seg.Words {
			if strings.TrimSpace(w.Text) == "" || w.End <= w.Start {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, seg)
		}
	}
	return out
}

func renderHeader(opts Options) string {
	alignment := 2
	marginV := maxInt(35, int(float64(opts.FontSize)*1.4))
	if opts.Position == model.SubtitlePositionTop {
		alignment = 8
		marginV = maxInt(40, int(float64(opts.FontSize)*1.5))
	}

	outline := maxF(2.0, float64(opts.FontSize)/12.0)
	shadow := maxF(1.5, float64(opts.FontSize)/16.0)
	countdownFontSize := int(float64(opts.FontSize) * 1.4)
	nextUpFontSize := int(float64(opts.FontSize) * 0.75)
	outlineNextUp := maxF(1.5, float64(nextUpFontSize)/14.0)
	shadowNextUp := maxF(1.0, float64(nextUpFontSize)/20.0)

	c := opts.Colors
	return fmt.Sprintf(assHeaderTemplate,
		escapeASSText(opts.FontName), opts.FontSize,
		c.PrimaryAlpha, bgrColor(c.Primary),
		c.SecondaryAlpha, bgrColor(c.Secondary),
		c.OutlineAlpha, bgrColor(c.Outline),
		c.BackAlpha, bgrColor(c.Back),
		-1, 1, outline, shadow, alignment, marginV,
		countdownFontSize, nextUpFontSize, outlineNextUp, shadowNextUp,
	)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// bgrColor converts an RRGGBB hex string to ASS's BBGGRR wire order,
// falling back to white on malformed input.
func bgrColor(hex string) string {
	if len(hex) != 6 {
		return "FFFFFF"
	}
	for _, r := range hex {
		if !isHexDigit(r) {
			return "FFFFFF"
		}
	}
	return hex[4:6] + hex[2:4] + hex[0:2]
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func escapeASSText(s string) string {
	s = strings.ReplaceAll(s, "{", `\{`)
	s = strings.ReplaceAll(s, "}", `\}`)
	return s
}
