package oaihttp

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// streamSSE reads a server-sent event stream and calls onEvent once per
// dispatched event with its data lines joined by newlines.
func streamSSE(r io.Reader, onEvent func(event string, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)
	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		ev := eventName
		dataLines = nil
		eventName = ""
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if ferr := flush(); ferr != nil {
				return ferr
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		if eof {
			return flush()
		}
	}
}
