package file

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/fasthooks/pkg/domain"
)

// ReadEvents decodes a JSONL stream written by Sink. Lines have no length
// limit and blank lines are skipped. A malformed line fails the whole read
// with its line number.
func ReadEvents(r io.Reader) ([]domain.Event, error) {
	br := bufio.NewReader(r)

	var events []domain.Event
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				var ev domain.Event
				if jsonErr := json.Unmarshal(trimmed, &ev); jsonErr != nil {
					return events, fmt.Errorf("line %d: %w", lineNo, jsonErr)
				}
				events = append(events, ev)
			}
		}
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
	}
}

// ReadFile is ReadEvents on a path.
func ReadFile(path string) ([]domain.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEvents(f)
}
