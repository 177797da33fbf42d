package sse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Event represents a single Server-Sent Event.
type Event struct {
	ID    string
	Event string
	Data  string
}

// Decoder reads Server-Sent Events from a response body. Inference servers
// frame streamed completions as `data: {json}` lines separated by blank
// lines, so the decoder only needs the wire format, not the connection.
type Decoder struct {
	reader *bufio.Reader
}

// NewDecoder returns a Decoder that reads events from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next reads the next event from the stream. It returns io.EOF when the
// stream ends cleanly between events. A final event that the server did not
// terminate with a blank line is still returned; the EOF surfaces on the
// following call.
func (d *Decoder) Next(ctx context.Context) (Event, error) {
	event := Event{}
	var dataLines []string

	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		default:
		}

		line, err := d.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if flushed, ok := finish(&event, dataLines, line); ok {
					return flushed, nil
				}
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("read line: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")

		// Empty line marks end of event
		if line == "" {
			if len(dataLines) > 0 || event.Event != "" || event.ID != "" {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			continue
		}

		if !parseField(&event, &dataLines, line) {
			continue
		}
	}
}

// parseField applies one non-blank line to the event under construction.
// Comment lines and lines without a field separator are skipped.
func parseField(event *Event, dataLines *[]string, line string) bool {
	if strings.HasPrefix(line, ":") {
		return false
	}

	colonIdx := strings.Index(line, ":")
	if colonIdx == -1 {
		// Malformed line, skip
		return false
	}

	field := line[:colonIdx]
	value := line[colonIdx+1:]

	// Strip leading space
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}

	switch field {
	case "id":
		event.ID = value
	case "event":
		event.Event = value
	case "data":
		*dataLines = append(*dataLines, value)
	}
	return true
}

// finish assembles a trailing event when EOF cuts the stream before the
// terminating blank line. tail holds whatever ReadString returned alongside
// the EOF.
func finish(event *Event, dataLines []string, tail string) (Event, bool) {
	tail = strings.TrimRight(tail, "\r\n")
	if tail != "" {
		parseField(event, &dataLines, tail)
	}
	if len(dataLines) == 0 && event.Event == "" && event.ID == "" {
		return Event{}, false
	}
	event.Data = strings.Join(dataLines, "\n")
	return *event, true
}
