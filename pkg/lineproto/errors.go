package lineproto

import (
	"errors"
	"fmt"
)

// ErrWrite wraps failures of the underlying writer. Once it is returned the
// output stream is unusable.
var ErrWrite = errors.New("write record")

// ErrTimestampRange is the cause of a DecodeError for a datapoint timestamp
// that does not fit in int64 nanoseconds.
var ErrTimestampRange = errors.New("timestamp out of range")

// DecodeError reports an input line that could not be turned into a metric.
// The pipeline logs it and moves on to the next line.
type DecodeError struct {
	// Line is the 1-based input line number. It is zero when the decoder
	// was called outside a stream; the pipeline fills it in.
	Line int

	// Reason is a short description of what was wrong with the line.
	Reason string

	// Cause is the underlying parser error, if any.
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	prefix := "decode"
	if e.Line > 0 {
		prefix = fmt.Sprintf("decode line %d", e.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Unwrap returns the underlying error for error chain support.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

func decodeErr(cause error, format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...), Cause: cause}
}
