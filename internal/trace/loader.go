package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load reads every event of a trace file.
func Load(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads JSON-line events until EOF. Blank lines are skipped.
func Decode(r io.Reader) ([]Event, error) {
	var events []Event
	reader := bufio.NewReader(r)
	lineNo := 0

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading trace: %w", err)
		}
		lineNo++

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var e Event
			if uerr := json.Unmarshal(trimmed, &e); uerr != nil {
				return nil, fmt.Errorf("line %d: failed to parse event: %w", lineNo, uerr)
			}
			events = append(events, e)
		}

		if err == io.EOF {
			break
		}
	}
	return events, nil
}
