package gowsi

import "fmt"

// Kind tags the reason a Slide operation failed, per the taxonomy every
// vendor module and every layer of the render pipeline agrees on.
type Kind int

const (
	// KindFailed is the catch-all: short reads, unmet preconditions,
	// anything that doesn't fit a more specific kind below.
	KindFailed Kind = iota
	// KindFormatNotSupported means a probe (or every probe) declined
	// the input; non-fatal during dispatch, fatal once no vendor is
	// left to try.
	KindFormatNotSupported
	// KindBadData means the file claims a recognised format but
	// violates a structural expectation of that format.
	KindBadData
	// KindIOError means a platform I/O call failed.
	KindIOError
)

func (k Kind) String() string {
	switch k {
	case KindFormatNotSupported:
		return "FormatNotSupported"
	case KindBadData:
		return "BadData"
	case KindIOError:
		return "IoError"
	default:
		return "Failed"
	}
}

// Error is the error type returned by every fallible gowsi operation.
// It carries a Kind plus a chain of context strings, so the formatted
// message reads like "Couldn't get size: Couldn't seek file /x: Invalid
// argument" — deeper layers are prefixed onto, not wrapped opaquely
// around, the outer message. Existing tools that match substrings on
// the message rely on this shape; don't reformat it.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// newError builds a leaf error of the given kind.
func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// wrapError prefixes context onto an existing error, preserving its
// Kind unless overridden.
func wrapError(kind Kind, context string, cause error) *Error {
	return &Error{Kind: kind, msg: context, err: cause}
}

// Failed builds a KindFailed error with a formatted message.
func Failed(format string, args ...any) *Error {
	return newError(KindFailed, fmt.Sprintf(format, args...))
}

// FormatNotSupported builds a KindFormatNotSupported error.
func FormatNotSupported(format string, args ...any) *Error {
	return newError(KindFormatNotSupported, fmt.Sprintf(format, args...))
}

// BadData builds a KindBadData error.
func BadData(format string, args ...any) *Error {
	return newError(KindBadData, fmt.Sprintf(format, args...))
}

// IOError builds a KindIOError error wrapping an underlying os/syscall
// failure with the path that was being operated on.
func IOError(context, path string, cause error) *Error {
	return &Error{Kind: KindIOError, msg: fmt.Sprintf("%s %s", context, path), err: cause}
}

// WithContext prefixes an additional context string onto err, keeping
// its Kind. If err is not a *Error it is wrapped as KindFailed.
func WithContext(context string, err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if e, ok := err.(*Error); ok {
		ge = e
	} else {
		ge = newError(KindFailed, err.Error())
	}
	return wrapError(ge.Kind, context, ge)
}
