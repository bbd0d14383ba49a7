package slcan

import (
	"errors"
	"fmt"
)

var (
	// ErrAdapter indicates the adapter replied BEL to a command.
	ErrAdapter = errors.New("slcan: adapter error")
	// ErrUnsupportedBitrate indicates the bitrate has no SLCAN setup code.
	ErrUnsupportedBitrate = errors.New("slcan: unsupported bitrate")
)

// SyntaxError reports a line which can't be decoded.
type SyntaxError struct {
	Line string
}

// Error implements error.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("slcan: bad line %q", e.Line)
}
