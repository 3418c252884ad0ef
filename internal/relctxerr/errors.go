// Package relctxerr defines the error kinds shared across the analysis
// pipeline as sentinel values usable with errors.Is.
package relctxerr

import "errors"

// Kind classifies an error: not a type hierarchy, just a closed tag.
type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindFileTooLarge     Kind = "file_too_large"
	KindLineCountExceeded Kind = "line_count_exceeded"
	KindParseFailed      Kind = "parse_failed"
	KindDetectorFailed   Kind = "detector_failed"
	KindIoError          Kind = "io_error"
	KindBrokenReference  Kind = "broken_reference"
)

// Sentinel errors for use with errors.Is. Wrap with fmt.Errorf("...: %w", ...)
// to attach context.
var (
	ErrInvalidInput      = errors.New(string(KindInvalidInput))
	ErrFileTooLarge      = errors.New(string(KindFileTooLarge))
	ErrLineCountExceeded = errors.New(string(KindLineCountExceeded))
	ErrParseFailed       = errors.New(string(KindParseFailed))
	ErrDetectorFailed    = errors.New(string(KindDetectorFailed))
	ErrIoError           = errors.New(string(KindIoError))
	ErrBrokenReference   = errors.New(string(KindBrokenReference))
	ErrOutsideRoot       = errors.New("path escapes project root")
	ErrNotFound          = errors.New("not found")
)

// Error wraps an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns err's Kind if it (or something it wraps) is an *Error,
// and "" otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
