// Package extractor turns uploaded files into plain text ready for chunking.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
	KindPPTX     Kind = "pptx"
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
	KindText     Kind = "text"
	KindAudio    Kind = "audio"
)

var (
	ErrEmpty       = errors.New("empty file")
	ErrUnsupported = errors.New("unsupported file type")
	ErrNoText      = errors.New("no extractable text")
)

type Result struct {
	Kind     Kind     `json:"kind"`
	Text     string   `json:"text"`
	Pages    int      `json:"pages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Transcriber converts speech to text. The OpenAI engine implements it with Whisper.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type Extractor struct {
	transcriber Transcriber
}

// New returns an Extractor. transcriber may be nil, in which case audio uploads
// are rejected with ErrUnsupported.
func New(transcriber Transcriber) *Extractor {
	return &Extractor{transcriber: transcriber}
}

func (e *Extractor) Extract(ctx context.Context, name, mime string, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: name=%s", ErrEmpty, name)
	}
	kind, err := Detect(name, mime, data)
	if err != nil {
		return Result{}, err
	}

	var res Result
	switch kind {
	case KindPDF:
		res, err = extractPDF(data)
	case KindDOCX:
		res, err = extractDOCX(data)
	case KindPPTX:
		res, err = extractPPTX(data)
	case KindHTML:
		res, err = extractHTML(data)
	case KindMarkdown, KindText:
		res = Result{Text: normalizeText(string(data))}
	case KindAudio:
		res, err = e.transcribe(ctx, name, data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, kind)
	}
	if err != nil {
		return Result{}, err
	}
	res.Kind = kind
	if strings.TrimSpace(res.Text) == "" {
		return Result{}, fmt.Errorf("%w: name=%s kind=%s", ErrNoText, name, kind)
	}
	return res, nil
}

func (e *Extractor) transcribe(ctx context.Context, name string, data []byte) (Result, error) {
	if e.transcriber == nil {
		return Result{}, fmt.Errorf("%w: audio transcription is not configured", ErrUnsupported)
	}
	text, err := e.transcriber.Transcribe(ctx, filepath.Base(name), bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("transcribe %s: %w", name, err)
	}
	return Result{Text: normalizeText(text)}, nil
}
