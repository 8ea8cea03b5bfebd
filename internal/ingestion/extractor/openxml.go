package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// extractDOCX walks word/document.xml writing one paragraph per <w:p>.
// Office Math runs are kept inline as $...$ so the chunker and the model
// still see them as math.
func extractDOCX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open docx zip: %w", err)
	}
	raw, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return Result{}, err
	}
	text, err := paragraphsFromXML(raw, "p")
	if err != nil {
		return Result{}, fmt.Errorf("decode document.xml: %w", err)
	}
	return Result{Text: text}, nil
}

func extractPPTX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pptx zip: %w", err)
	}
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/") && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	var slides []string
	for _, name := range names {
		raw, err := readZipFile(zr, name)
		if err != nil {
			return Result{}, err
		}
		text, err := paragraphsFromXML(raw, "p")
		if err != nil {
			return Result{}, fmt.Errorf("decode %s: %w", name, err)
		}
		if text != "" {
			slides = append(slides, text)
		}
	}
	return Result{Text: strings.Join(slides, "\n\n"), Pages: len(names)}, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

func paragraphsFromXML(raw []byte, paraLocal string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		paras  []string
		cur    strings.Builder
		inText bool
		math   int
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "oMath":
				if math == 0 {
					cur.WriteString(" $")
				}
				math++
			case t.Name.Local == "t":
				inText = true
			case t.Name.Local == "tab":
				cur.WriteString("\t")
			case t.Name.Local == "br":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			switch {
			case t.Name.Local == "oMath":
				math--
				if math == 0 {
					cur.WriteString("$ ")
				}
			case t.Name.Local == "t":
				inText = false
			case t.Name.Local == paraLocal && math == 0:
				if p := strings.TrimSpace(cur.String()); p != "" {
					paras = append(paras, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if p := strings.TrimSpace(cur.String()); p != "" {
		paras = append(paras, p)
	}
	return normalizeText(strings.Join(paras, "\n\n")), nil
}
