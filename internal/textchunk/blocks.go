package textchunk

import "strings"

// splitBlocks cuts normalized text into paragraphs (blank-line separated) and
// display-math blocks. Word offsets are assigned in document order.
func splitBlocks(text string) []piece {
	var (
		blocks []piece
		cur    []string
		closer string
		pos    int
	)
	flush := func(math bool) {
		if len(cur) == 0 {
			return
		}
		s := strings.TrimSpace(strings.Join(cur, "\n"))
		cur = cur[:0]
		if s == "" {
			return
		}
		wc := CountWords(s)
		blocks = append(blocks, piece{text: s, words: wc, start: pos, math: math})
		pos += wc
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if closer != "" {
			cur = append(cur, line)
			if strings.Contains(trimmed, closer) {
				flush(true)
				closer = ""
			}
			continue
		}
		if opener, c, ok := mathOpener(trimmed); ok {
			flush(false)
			cur = append(cur, line)
			if strings.Contains(trimmed[len(opener):], c) {
				flush(true)
			} else {
				closer = c
			}
			continue
		}
		if trimmed == "" {
			flush(false)
			continue
		}
		cur = append(cur, line)
	}
	// An unterminated math block is still kept whole.
	flush(closer != "")
	return blocks
}

func mathOpener(line string) (opener, closer string, ok bool) {
	switch {
	case strings.HasPrefix(line, "$$"):
		return "$$", "$$", true
	case strings.HasPrefix(line, `\[`):
		return `\[`, `\]`, true
	case strings.HasPrefix(line, `\begin{`):
		end := strings.Index(line, "}")
		if end < 0 {
			return "", "", false
		}
		env := line[len(`\begin{`):end]
		if env == "" {
			return "", "", false
		}
		return line[:end+1], `\end{` + env + `}`, true
	}
	return "", "", false
}

// splitParagraph breaks an oversize paragraph on sentence boundaries, falling
// back to fixed word windows for sentences longer than max.
func splitParagraph(b piece, max, overlap int) []piece {
	words := strings.Fields(b.text)
	var sentences [][]int // [start, end) word index ranges
	start := 0
	for i, w := range words {
		if endsSentence(w) {
			sentences = append(sentences, []int{start, i + 1})
			start = i + 1
		}
	}
	if start < len(words) {
		sentences = append(sentences, []int{start, len(words)})
	}

	var out []piece
	emit := func(from, to int) {
		out = append(out, piece{
			text:  strings.Join(words[from:to], " "),
			words: to - from,
			start: b.start + from,
			cont:  len(out) > 0,
		})
	}

	runStart, runEnd := -1, -1
	for _, s := range sentences {
		n := s[1] - s[0]
		if n > max {
			if runStart >= 0 {
				emit(runStart, runEnd)
				runStart, runEnd = -1, -1
			}
			step := max - overlap
			for from := s[0]; from < s[1]; from += step {
				to := from + max
				if to > s[1] {
					to = s[1]
				}
				emit(from, to)
				if to == s[1] {
					break
				}
			}
			continue
		}
		if runStart >= 0 && s[1]-runStart > max {
			emit(runStart, runEnd)
			runStart = -1
		}
		if runStart < 0 {
			runStart = s[0]
		}
		runEnd = s[1]
	}
	if runStart >= 0 {
		emit(runStart, runEnd)
	}
	return out
}

func endsSentence(word string) bool {
	w := strings.TrimRight(word, `"')]}’”`)
	if w == "" {
		return false
	}
	switch w[len(w)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
