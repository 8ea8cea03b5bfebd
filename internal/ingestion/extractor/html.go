package extractor

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"li": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "tr": true, "br": true, "hr": true, "table": true, "ul": true, "ol": true,
}

var skipElements = map[string]bool{"script": true, "style": true, "noscript": true, "head": true}

func extractHTML(data []byte) (Result, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	var (
		paras []string
		cur   strings.Builder
		skip  int
	)
	flush := func() {
		if p := strings.Join(strings.Fields(cur.String()), " "); p != "" {
			paras = append(paras, p)
		}
		cur.Reset()
	}
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return Result{Text: normalizeText(strings.Join(paras, "\n\n"))}, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipElements[tag] && tt == html.StartTagToken {
				skip++
			}
			if blockElements[tag] {
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipElements[tag] && skip > 0 {
				skip--
			}
			if blockElements[tag] {
				flush()
			}
		case html.TextToken:
			if skip == 0 {
				cur.Write(z.Text())
				cur.WriteString(" ")
			}
		}
	}
}
