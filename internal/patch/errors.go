package patch

import "fmt"

// ParseError reports a malformed patch. Line is the 1-based line number in
// the sanitized patch text where parsing gave up; 0 when the problem applies
// to the input as a whole.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed patch at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("malformed patch: %s", e.Message)
}

func parseErrorf(line int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Message: fmt.Sprintf(format, args...)}
}
