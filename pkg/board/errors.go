package board

import (
	"errors"
	"fmt"

	"github.com/robotalks/us1.go/pkg/can"
)

var (
	// ErrNoTransport indicates the board has no bus to send on.
	ErrNoTransport = errors.New("no transport")
	// ErrNoDevice indicates the device number isn't registered.
	ErrNoDevice = errors.New("no such device")
	// ErrTooManyDevices indicates the board is full.
	ErrTooManyDevices = errors.New("too many devices")
)

// DeviceError attaches the board name and device number to an error.
// Device is negative when the error isn't about a registered device.
type DeviceError struct {
	Board  string
	Device int
	Err    error
}

// Error implements error.
func (e *DeviceError) Error() string {
	if e.Device < 0 {
		return fmt.Sprintf("%s: %v", e.Board, e.Err)
	}
	return fmt.Sprintf("%s %d: %v", e.Board, e.Device, e.Err)
}

// Unwrap returns the wrapped error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// RemoteError is reported by a device with an error frame.
type RemoteError struct {
	Code byte
}

// Error implements error.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("device error 0x%02x", e.Code)
}

// ErrorRecord is a structured error passed to ErrorReporter.
type ErrorRecord struct {
	Board  string
	Device int
	Frame  *can.Frame
	Err    error
	Fatal  bool
}

// ErrorReporter receives errors recorded by a board.
type ErrorReporter interface {
	ReportError(ErrorRecord)
}

// ReportErrorFunc is func type of ErrorReporter.
type ReportErrorFunc func(ErrorRecord)

// ReportError implements ErrorReporter.
func (f ReportErrorFunc) ReportError(rec ErrorRecord) {
	f(rec)
}
