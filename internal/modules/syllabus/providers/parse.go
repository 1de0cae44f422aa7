package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a surrounding markdown code fence (``` or ```json).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseTopics extracts the "topics" value from a model response. Numbers are kept
// as json.Number so the analyzer sees exactly what the model wrote.
func ParseTopics(text string) (any, error) {
	cleaned := StripFences(text)

	obj, err := decodeObject(cleaned)
	if err != nil {
		start := strings.IndexByte(cleaned, '{')
		end := strings.LastIndexByte(cleaned, '}')
		if start == -1 || end <= start {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		obj, err = decodeObject(cleaned[start : end+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	}

	topics, ok := obj["topics"]
	if !ok {
		return nil, ErrNoTopics
	}
	if topics == nil {
		return []any{}, nil
	}
	return topics, nil
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return obj, nil
}
