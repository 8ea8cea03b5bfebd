// Package report renders stored analyses as Markdown, HTML and a PNG score
// card.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/scoring"
)

type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPNG      Format = "png"
)

var ErrUnknownFormat = errors.New("unknown report format")

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPNG:
		return "image/png"
	}
	return "text/markdown; charset=utf-8"
}

// View is an analysis with its result decoded by type.
type View struct {
	Analysis    *types.Analysis
	Assessment  *scoring.Assessment
	Chunks      []scoring.ChunkAssessment
	Comparison  *scoring.CompareResult
	Rewrite     *scoring.RewriteResult
	Reconstruct *scoring.ReconstructResult
}

func Decode(a *types.Analysis) (*View, error) {
	if a == nil {
		return nil, errors.New("nil analysis")
	}
	v := &View{Analysis: a}
	if a.Status != analyses.StatusSucceeded || len(a.Result) == 0 {
		return v, nil
	}
	var err error
	switch a.Type {
	case analyses.TypeAssessment:
		v.Assessment = &scoring.Assessment{}
		err = json.Unmarshal(a.Result, v.Assessment)
		if err == nil && len(a.Chunks) > 0 {
			err = json.Unmarshal(a.Chunks, &v.Chunks)
		}
	case analyses.TypeComparison:
		v.Comparison = &scoring.CompareResult{}
		err = json.Unmarshal(a.Result, v.Comparison)
	case analyses.TypeRewrite:
		v.Rewrite = &scoring.RewriteResult{}
		err = json.Unmarshal(a.Result, v.Rewrite)
	case analyses.TypeReconstruction:
		v.Reconstruct = &scoring.ReconstructResult{}
		err = json.Unmarshal(a.Result, v.Reconstruct)
	default:
		return nil, fmt.Errorf("unknown analysis type %q", a.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", a.Type, err)
	}
	return v, nil
}

// Heading is the report title line.
func (v *View) Heading() string {
	a := v.Analysis
	label := a.Type
	switch a.Type {
	case analyses.TypeAssessment:
		label = titleCase(a.Kind) + " assessment"
	case analyses.TypeComparison:
		label = titleCase(a.Kind) + " comparison"
	case analyses.TypeRewrite:
		label = "Rewrite"
		if a.Kind != "" {
			label += " for " + a.Kind
		}
	case analyses.TypeReconstruction:
		label = "Argument reconstruction"
	}
	if t := strings.TrimSpace(a.Title); t != "" {
		return label + ": " + t
	}
	return label
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fmtScore(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
