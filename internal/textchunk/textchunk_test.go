package textchunk

import (
	"strings"
	"testing"
)

func words(n int, word string) string {
	w := make([]string, n)
	for i := range w {
		w[i] = word
	}
	return strings.Join(w, " ")
}

func TestCountWords(t *testing.T) {
	cases := map[string]int{
		"":                 0,
		"   ":              0,
		"one":              1,
		"one  two\nthree":  3,
		"\tleading spaces ": 2,
	}
	for in, want := range cases {
		if got := CountWords(in); got != want {
			t.Fatalf("CountWords(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("  \n\n ", Options{MaxWords: 10}); got != nil {
		t.Fatalf("expected no chunks, got %v", got)
	}
}

func TestSplitDisabledReturnsWholeText(t *testing.T) {
	in := "alpha beta\n\n\n\ngamma"
	got := Split(in, Options{})
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0].Text != "alpha beta\n\ngamma" || got[0].WordCount != 3 {
		t.Fatalf("unexpected chunk %+v", got[0])
	}
}

func TestSplitPacksParagraphs(t *testing.T) {
	p1 := words(4, "a")
	p2 := words(4, "b")
	p3 := words(4, "c")
	in := p1 + "\n\n" + p2 + "\n\n" + p3
	got := Split(in, Options{MaxWords: 8})
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(got), got)
	}
	if got[0].Text != p1+"\n\n"+p2 {
		t.Fatalf("paragraph break not preserved: %q", got[0].Text)
	}
	if got[0].WordCount != 8 || got[1].WordCount != 4 {
		t.Fatalf("word counts %d %d", got[0].WordCount, got[1].WordCount)
	}
	if got[1].StartWord != 8 || got[1].EndWord != 12 || got[1].Index != 1 {
		t.Fatalf("bad offsets %+v", got[1])
	}
}

func TestSplitNeverCutsMath(t *testing.T) {
	math := "$$\n" + words(6, "x") + "\n$$"
	in := words(3, "a") + "\n" + math + "\n" + words(3, "b")
	got := Split(in, Options{MaxWords: 5})
	var found bool
	for _, c := range got {
		if strings.Contains(c.Text, "$$") {
			if strings.Count(c.Text, "$$") != 2 {
				t.Fatalf("math block split: %q", c.Text)
			}
			if !c.HasMath {
				t.Fatalf("HasMath not set")
			}
			found = true
		}
	}
	if !found {
		t.Fatalf("math block missing from %+v", got)
	}
	if len(got) != 3 {
		t.Fatalf("expected paragraph, math, paragraph; got %d chunks", len(got))
	}
}

func TestSplitBracketAndEnvironmentMath(t *testing.T) {
	in := "intro words here\n\\[\na + b\n\n= c\n\\]\n\\begin{align}\nx &= y\n\\end{align}"
	blocks := splitBlocks(in)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].math || !blocks[1].math || !blocks[2].math {
		t.Fatalf("math flags wrong: %+v", blocks)
	}
	if !strings.Contains(blocks[1].text, "\n\n= c") {
		t.Fatalf("blank line inside math lost: %q", blocks[1].text)
	}
}

func TestSplitOversizeParagraphOnSentences(t *testing.T) {
	in := "One two three. Four five six. Seven eight nine."
	got := Split(in, Options{MaxWords: 6})
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(got), got)
	}
	if got[0].Text != "One two three. Four five six." {
		t.Fatalf("chunk 0 = %q", got[0].Text)
	}
	if got[1].Text != "Seven eight nine." {
		t.Fatalf("chunk 1 = %q", got[1].Text)
	}
}

func TestSplitHardWithOverlapAndJoin(t *testing.T) {
	var w []string
	for i := 0; i < 10; i++ {
		w = append(w, string(rune('a'+i)))
	}
	in := strings.Join(w, " ")
	got := Split(in, Options{MaxWords: 4, OverlapWords: 1})
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(got), got)
	}
	if got[1].Text != "d e f g" || got[1].StartWord != 3 {
		t.Fatalf("overlap not applied: %+v", got[1])
	}
	if joined := Join(got); joined != "a b c d\n\ne f g\n\nh i j" {
		t.Fatalf("Join = %q", joined)
	}
}

func TestSplitOverlapClamped(t *testing.T) {
	got := Split(words(5, "z"), Options{MaxWords: 2, OverlapWords: 9})
	if len(got) == 0 {
		t.Fatalf("expected chunks")
	}
	for _, c := range got {
		if c.WordCount > 2 {
			t.Fatalf("chunk exceeds max: %+v", c)
		}
	}
}

func TestJoinTexts(t *testing.T) {
	if got := JoinTexts([]string{" a ", "", "b"}); got != "a\n\nb" {
		t.Fatalf("got %q", got)
	}
}
