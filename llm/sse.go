package llm

import (
	"bufio"
	"io"
	"strings"
)

// sseReader decodes a server-sent-event stream on the data:-prefixed framing
// convention all three vendors share. Event names and comments are skipped;
// only data payloads are surfaced.
type sseReader struct {
	scanner *bufio.Scanner
}

// maxSSELine bounds a single event line. Tool-call argument fragments are
// small, but complete-response chunks from Gemini can carry whole function
// calls in one line.
const maxSSELine = 10 * 1024 * 1024

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxSSELine)
	return &sseReader{scanner: scanner}
}

// Next returns the payload of the next data: line, or io.EOF when the stream
// ends.
func (r *sseReader) Next() (string, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		return payload, nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
