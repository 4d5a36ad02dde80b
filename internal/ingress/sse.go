package ingress

import (
	"bufio"
	"io"
	"strings"
)

// maxLineBytes bounds one line of the event stream.
const maxLineBytes = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	Type string
	ID   string
	Data string
}

// ReadEvents parses a text/event-stream body and calls fn for every event
// with data. Comment lines and unknown fields are ignored. Multiple data
// lines are joined with newlines. It returns when r is exhausted.
func ReadEvents(r io.Reader, fn func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var ev Event
	var data strings.Builder
	hasData := false

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if hasData {
				ev.Data = strings.TrimSuffix(data.String(), "\n")
				fn(ev)
			}
			ev = Event{}
			data.Reset()
			hasData = false
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		}
	}

	return scanner.Err()
}
