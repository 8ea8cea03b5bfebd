package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yungbote/originality-backend/internal/ingestion/extractor"
	"github.com/yungbote/originality-backend/internal/textchunk"
)

func newChunkCmd(opts *rootOptions) *cobra.Command {
	var words int
	cmd := &cobra.Command{
		Use:   "chunk FILE",
		Short: "Split a document into word-bounded chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args[0], nil)
			if err != nil {
				return err
			}
			chunks := textchunk.Split(text, textchunk.Options{MaxWords: words})
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, chunks)
			}
			table := newTable(out, "#", "Words", "Range", "Math", "Preview")
			for _, c := range chunks {
				math := ""
				if c.HasMath {
					math = "yes"
				}
				_ = table.Append([]string{
					strconv.Itoa(c.Index + 1),
					strconv.Itoa(c.WordCount),
					fmt.Sprintf("%d-%d", c.StartWord, c.EndWord),
					math,
					preview(c.Text, 60),
				})
			}
			if err := table.Render(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d chunks, %d words\n", len(chunks), textchunk.CountWords(text))
			return err
		},
	}
	cmd.Flags().IntVar(&words, "words", textchunk.DefaultMaxWords, "maximum words per chunk")
	return cmd
}

// readText extracts plain text from any supported upload format.
func readText(cmd *cobra.Command, path string, tr extractor.Transcriber) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	res, err := extractor.New(tr).Extract(cmd.Context(), filepath.Base(path), "", data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	return res.Text, nil
}
