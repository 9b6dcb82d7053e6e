package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnrecognizedPriority is returned for priority text that is neither an
// integer nor a known literal.
var ErrUnrecognizedPriority = errors.New("unrecognized priority")

var priorityLiterals = map[string]int{
	"LOWEST":  -2,
	"LOW":     -1,
	"MEDIUM":  0,
	"HIGH":    1,
	"HIGHEST": 2,
}

// DecodePriority maps the priority field to the signed scale. Empty text
// means the field is absent and decodes to medium.
func DecodePriority(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, nil
	}
	if n, ok := priorityLiterals[strings.ToUpper(text)]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedPriority, text)
}
