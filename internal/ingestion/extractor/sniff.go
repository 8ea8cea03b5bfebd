package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true,
	".webm": true, ".flac": true, ".mp4": true, ".mpga": true, ".mpeg": true,
}

// Detect decides the file kind. Magic bytes win over the client-supplied
// mime type and extension.
func Detect(name, mime string, data []byte) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	mt := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	if isPDF(data) {
		return KindPDF, nil
	}
	if isZip(data) {
		kind, err := detectOpenXMLKind(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v (name=%s)", ErrUnsupported, err, name)
		}
		return kind, nil
	}
	if isAudio(data) || strings.HasPrefix(mt, "audio/") || audioExts[ext] {
		return KindAudio, nil
	}
	if looksLikeHTML(data) || mt == "text/html" || ext == ".html" || ext == ".htm" {
		return KindHTML, nil
	}

	switch {
	case mt == "application/pdf" || ext == ".pdf":
		return "", fmt.Errorf("%w: file claims pdf but has no %%PDF header (name=%s head=%s)", ErrUnsupported, name, firstBytesHex(data, 8))
	case mt == mimeDOCX || ext == ".docx":
		return "", fmt.Errorf("%w: file claims docx but is not a zip container (name=%s)", ErrUnsupported, name)
	case mt == mimePPTX || ext == ".pptx":
		return "", fmt.Errorf("%w: file claims pptx but is not a zip container (name=%s)", ErrUnsupported, name)
	}

	if isProbablyText(data) {
		if ext == ".md" || ext == ".markdown" || mt == "text/markdown" {
			return KindMarkdown, nil
		}
		return KindText, nil
	}
	return "", fmt.Errorf("%w: name=%s ext=%s mime=%s head=%s", ErrUnsupported, name, ext, mime, firstBytesHex(data, 8))
}

func isPDF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("%PDF-"))
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

// isAudio recognises ID3-tagged or raw MPEG frames, RIFF/WAVE, Ogg and FLAC.
func isAudio(b []byte) bool {
	switch {
	case bytes.HasPrefix(b, []byte("ID3")):
		return true
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return true
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return true
	case bytes.HasPrefix(b, []byte("OggS")), bytes.HasPrefix(b, []byte("fLaC")):
		return true
	}
	return false
}

func looksLikeHTML(b []byte) bool {
	s := strings.ToLower(strings.TrimSpace(string(b[:min(len(b), 2048)])))
	if strings.HasPrefix(s, "<!doctype html") || strings.HasPrefix(s, "<html") {
		return true
	}
	return strings.Contains(s, "<html") && strings.Contains(s, "<body")
}

func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func detectOpenXMLKind(data []byte) (Kind, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	hasWord, hasPpt := false, false
	for _, f := range zr.File {
		hasWord = hasWord || strings.HasPrefix(f.Name, "word/")
		hasPpt = hasPpt || strings.HasPrefix(f.Name, "ppt/")
	}
	switch {
	case hasWord && !hasPpt:
		return KindDOCX, nil
	case hasPpt && !hasWord:
		return KindPPTX, nil
	default:
		return "", fmt.Errorf("zip does not look like docx or pptx")
	}
}

func firstBytesHex(b []byte, n int) string {
	return fmt.Sprintf("%x", b[:min(len(b), n)])
}
