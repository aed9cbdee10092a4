package mcp

import (
	"bufio"
	"io"
	"strings"
)

const maxEventSize = 4 << 20

type sseEvent struct {
	Event string
	Data  string
}

// readEvents parses a text/event-stream body and calls fn for every event
// until the body ends or fn returns false. Events without a name are
// "message" events.
func readEvents(r io.Reader, fn func(sseEvent) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxEventSize)

	var (
		name string
		data []string
	)
	dispatch := func() bool {
		defer func() { name, data = "", nil }()
		if len(data) == 0 {
			return true
		}
		ev := sseEvent{Event: name, Data: strings.Join(data, "\n")}
		if ev.Event == "" {
			ev.Event = "message"
		}
		return fn(ev)
	}

	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			if !dispatch() {
				return nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}
