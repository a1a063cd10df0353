package trace

import (
	"errors"
	"fmt"
)

// EntryCallType is the call type printed on depth-0 lines.
const EntryCallType = "entry"

// ErrMalformedRecord is returned for lines that do not contain the expected delimiters.
var ErrMalformedRecord = errors.New("malformed record")

// Record is one decoded trace line
type Record struct {
	Line     int    `json:"line"`      // 1-based line number in the source file
	Depth    int    `json:"depth"`     // nesting depth, 0 for entry points
	CallType string `json:"call_type"` // e.g. "directly calls"
	Class    string `json:"class"`
	Method   string `json:"method"` // method name with parameter list, e.g. "run()"
}

// IsEntry reports whether the record sits at depth 0.
func (r Record) IsEntry() bool {
	return r.Depth == 0
}

// MalformedError describes a skipped line.
type MalformedError struct {
	Line   int
	Reason string
	Text   string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedRecord) match.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func malformed(line int, text, reason string) error {
	return &MalformedError{Line: line, Reason: reason, Text: text}
}
