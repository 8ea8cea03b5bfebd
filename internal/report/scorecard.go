package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	types "github.com/yungbote/originality-backend/internal/domain"
)

const (
	cardWidth  = 1200
	cardHeight = 630
	maxBars    = 6
)

type bar struct {
	label string
	value float64
}

var (
	fontsOnce sync.Once
	fontsErr  error
	regular   *truetype.Font
	bold      *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

// ScoreCardPNG draws a shareable summary image: the headline score as a ring
// and up to six labelled bars.
func ScoreCardPNG(a *types.Analysis) ([]byte, error) {
	v, err := Decode(a)
	if err != nil {
		return nil, err
	}
	return v.ScoreCardPNG()
}

func (v *View) ScoreCardPNG() ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	a := v.Analysis
	dc := gg.NewContext(cardWidth, cardHeight)

	dc.SetColor(color.White)
	dc.Clear()

	score, hasScore := 0.0, a.Score != nil
	if hasScore {
		score = *a.Score
	}
	accent := scoreColor(score, hasScore)
	dc.SetColor(accent)
	dc.DrawRectangle(0, 0, cardWidth, 14)
	dc.Fill()

	// Heading
	dc.SetFontFace(face(bold, 40))
	dc.SetColor(color.RGBA{31, 35, 40, 255})
	dc.DrawStringWrapped(v.Heading(), 60, 50, 0, 0, cardWidth-120, 1.25, gg.AlignLeft)

	// Score ring
	cx, cy, radius := 240.0, 370.0, 150.0
	dc.SetLineWidth(26)
	dc.SetColor(color.RGBA{234, 238, 242, 255})
	dc.DrawCircle(cx, cy, radius)
	dc.Stroke()
	if hasScore && score > 0 {
		dc.SetColor(accent)
		start := -math.Pi / 2
		dc.DrawArc(cx, cy, radius, start, start+2*math.Pi*math.Min(score, 100)/100)
		dc.Stroke()
	}
	label := "n/a"
	if hasScore {
		label = fmtScore(score)
	}
	dc.SetColor(color.RGBA{31, 35, 40, 255})
	dc.SetFontFace(face(bold, 88))
	dc.DrawStringAnchored(label, cx, cy-8, 0.5, 0.5)
	dc.SetFontFace(face(regular, 26))
	dc.SetColor(color.RGBA{101, 109, 118, 255})
	dc.DrawStringAnchored("out of 100", cx, cy+58, 0.5, 0.5)

	// Bars
	bars := v.bars()
	if len(bars) > maxBars {
		bars = bars[:maxBars]
	}
	x0, y, barW := 480.0, 220.0, 640.0
	for _, b := range bars {
		dc.SetFontFace(face(regular, 26))
		dc.SetColor(color.RGBA{31, 35, 40, 255})
		dc.DrawString(truncate(dc, b.label, barW-90), x0, y)
		dc.DrawStringAnchored(fmtScore(b.value), x0+barW, y, 1, 0)

		dc.SetColor(color.RGBA{234, 238, 242, 255})
		dc.DrawRoundedRectangle(x0, y+12, barW, 16, 8)
		dc.Fill()
		if w := barW * math.Max(0, math.Min(b.value, 100)) / 100; w > 0 {
			dc.SetColor(scoreColor(b.value, true))
			dc.DrawRoundedRectangle(x0, y+12, math.Max(w, 16), 16, 8)
			dc.Fill()
		}
		y += 62
	}

	// Footer
	dc.SetFontFace(face(regular, 22))
	dc.SetColor(color.RGBA{101, 109, 118, 255})
	footer := fmt.Sprintf("%s / %s  ·  %d words  ·  %s", a.Provider, a.Model, a.WordCount, a.CreatedAt.UTC().Format("2006-01-02"))
	dc.DrawString(footer, 60, cardHeight-36)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (v *View) bars() []bar {
	var out []bar
	switch {
	case v.Assessment != nil:
		for _, d := range v.Assessment.Ranked() {
			out = append(out, bar{d.Name, d.Score})
		}
	case v.Comparison != nil:
		c := v.Comparison
		out = append(out,
			bar{"Passage A (head-to-head)", c.Comparison.ScoreA},
			bar{"Passage B (head-to-head)", c.Comparison.ScoreB},
			bar{"Passage A (full text)", c.AssessmentA.Score},
			bar{"Passage B (full text)", c.AssessmentB.Score},
		)
	case v.Rewrite != nil:
		if v.Rewrite.Original != nil {
			out = append(out, bar{"Original", v.Rewrite.Original.Score})
		}
		if v.Rewrite.EstimatedScore != nil {
			out = append(out, bar{"Rewrite (estimated)", *v.Rewrite.EstimatedScore})
		}
	case v.Reconstruct != nil:
		out = append(out, bar{"Cogency", v.Reconstruct.Reconstruction.CogencyScore})
	}
	return out
}

// scoreColor runs red through amber to green.
func scoreColor(score float64, ok bool) color.Color {
	switch {
	case !ok:
		return color.RGBA{140, 149, 159, 255}
	case score >= 75:
		return color.RGBA{26, 127, 55, 255}
	case score >= 50:
		return color.RGBA{191, 135, 0, 255}
	default:
		return color.RGBA{207, 34, 46, 255}
	}
}

func truncate(dc *gg.Context, s string, maxW float64) string {
	if w, _ := dc.MeasureString(s); w <= maxW {
		return s
	}
	rs := []rune(s)
	for len(rs) > 1 {
		rs = rs[:len(rs)-1]
		if w, _ := dc.MeasureString(string(rs) + "..."); w <= maxW {
			break
		}
	}
	return string(rs) + "..."
}
