package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	types "github.com/yungbote/originality-backend/internal/domain"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;max-width:46rem;margin:2rem auto;padding:0 1rem;line-height:1.55;color:#1f2328}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #d0d7de;padding:.35rem .7rem;vertical-align:top}
th{background:#f6f8fa}
h1{font-size:1.6rem}h2{font-size:1.25rem;margin-top:2rem}
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

func HTML(a *types.Analysis) ([]byte, error) {
	v, err := Decode(a)
	if err != nil {
		return nil, err
	}
	return v.HTML()
}

func (v *View) HTML() ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(v.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{
		Title: v.Heading(),
		// goldmark escapes raw HTML in the source unless WithUnsafe is set.
		Body: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}
