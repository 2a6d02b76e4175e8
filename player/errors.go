package player

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported container format")
	ErrMissingTrackInfo  = errors.New("missing required track metadata")
)

// OpenError is returned when a file cannot be turned into a Session.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open %q for playback: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// DecodeErrorPolicy decides what a Session does when a packet fails to decode
// after the file has already been opened successfully.
type DecodeErrorPolicy int

const (
	// EndOnDecodeError marks the session ended so the engine advances.
	EndOnDecodeError DecodeErrorPolicy = iota
	// AbortOnDecodeError panics, taking the whole process down.
	AbortOnDecodeError
)

// ParseDecodeErrorPolicy maps the configuration strings "end" and "abort".
func ParseDecodeErrorPolicy(s string) (DecodeErrorPolicy, error) {
	switch s {
	case "", "end":
		return EndOnDecodeError, nil
	case "abort":
		return AbortOnDecodeError, nil
	default:
		return EndOnDecodeError, fmt.Errorf("unknown decode error policy %q", s)
	}
}

func (p DecodeErrorPolicy) String() string {
	if p == AbortOnDecodeError {
		return "abort"
	}
	return "end"
}
