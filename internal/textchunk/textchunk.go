// Package textchunk splits long documents into word-bounded chunks that can be
// sent to an LLM one at a time. Paragraph boundaries survive chunking and
// display-math blocks are never cut.
package textchunk

import (
	"strings"
	"unicode"
)

const DefaultMaxWords = 1000

type Options struct {
	// MaxWords caps the words per chunk. <= 0 disables chunking.
	MaxWords int
	// OverlapWords repeats the tail of a hard-split paragraph at the start of
	// the next chunk. Clamped below MaxWords.
	OverlapWords int
}

type Chunk struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	// StartWord and EndWord are the half-open word range of the chunk in the
	// normalized source text.
	StartWord int  `json:"start_word"`
	EndWord   int  `json:"end_word"`
	HasMath   bool `json:"has_math"`
}

type piece struct {
	text  string
	words int
	start int
	math  bool
	// cont marks a continuation of the previous piece's paragraph.
	cont bool
}

// CountWords counts whitespace-delimited words.
func CountWords(s string) int {
	n := 0
	in := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			in = false
			continue
		}
		if !in {
			n++
			in = true
		}
	}
	return n
}

func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text)
}

func Split(text string, opts Options) []Chunk {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}
	blocks := splitBlocks(norm)
	if opts.MaxWords <= 0 {
		wc := CountWords(norm)
		hasMath := false
		for _, b := range blocks {
			hasMath = hasMath || b.math
		}
		return []Chunk{{Index: 0, Text: joinBlocks(blocks), WordCount: wc, StartWord: 0, EndWord: wc, HasMath: hasMath}}
	}
	max := opts.MaxWords
	overlap := opts.OverlapWords
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= max {
		overlap = max - 1
	}

	var pieces []piece
	for _, b := range blocks {
		if b.math || b.words <= max {
			pieces = append(pieces, b)
			continue
		}
		pieces = append(pieces, splitParagraph(b, max, overlap)...)
	}

	var (
		chunks []Chunk
		cur    []piece
		words  int
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		var sb strings.Builder
		hasMath := false
		for i, p := range cur {
			if i > 0 {
				if p.cont {
					sb.WriteString(" ")
				} else {
					sb.WriteString("\n\n")
				}
			}
			sb.WriteString(p.text)
			hasMath = hasMath || p.math
		}
		last := cur[len(cur)-1]
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      sb.String(),
			WordCount: words,
			StartWord: cur[0].start,
			EndWord:   last.start + last.words,
			HasMath:   hasMath,
		})
		cur = nil
		words = 0
	}
	for _, p := range pieces {
		if words > 0 && words+p.words > max {
			flush()
		}
		cur = append(cur, p)
		words += p.words
	}
	flush()
	return chunks
}

// Join reassembles chunk texts, dropping words repeated by overlap.
func Join(chunks []Chunk) string {
	var sb strings.Builder
	prevEnd := -1
	for _, c := range chunks {
		text := c.Text
		if prevEnd > c.StartWord {
			text = dropWords(text, prevEnd-c.StartWord)
		}
		if strings.TrimSpace(text) != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(text)
		}
		if c.EndWord > prevEnd {
			prevEnd = c.EndWord
		}
	}
	return sb.String()
}

// JoinTexts joins independently produced chunk outputs (rewrites) with
// paragraph breaks.
func JoinTexts(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func joinBlocks(blocks []piece) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.text)
	}
	return strings.Join(parts, "\n\n")
}

func dropWords(text string, n int) string {
	i := 0
	for ; n > 0; n-- {
		for i < len(text) && isSpaceByte(text[i]) {
			i++
		}
		if i >= len(text) {
			return ""
		}
		for i < len(text) && !isSpaceByte(text[i]) {
			i++
		}
	}
	return strings.TrimLeft(text[i:], " \t\n")
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
