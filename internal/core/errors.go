package core

import (
	"errors"
	"fmt"
)

// NotSupportedError signals a probe declining an input cleanly —
// "this isn't my format", not "this is my format but broken". The
// registry (internal/vendor) treats it as silent and moves on to the
// next probe; any other error becomes a recorded candidate.
type NotSupportedError struct {
	msg string
}

func (e *NotSupportedError) Error() string { return e.msg }

// NotSupported builds a NotSupportedError.
func NotSupported(format string, args ...any) error {
	return &NotSupportedError{msg: fmt.Sprintf(format, args...)}
}

// IsNotSupported reports whether err (or something it wraps) is a
// NotSupportedError.
func IsNotSupported(err error) bool {
	var ns *NotSupportedError
	return errors.As(err, &ns)
}
