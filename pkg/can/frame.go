// Package can defines CAN bus frames and the narrow interfaces
// board drivers use to send and receive them.
package can

import (
	"context"
	"errors"
	"fmt"
)

// Frame limits.
const (
	MaxDataLen    = 8
	MaxStandardID = 0x7ff
	MaxExtendedID = 0x1fffffff
)

var (
	// ErrClosed indicates the bus has been closed.
	ErrClosed = errors.New("can: closed")
	// ErrDataTooLong indicates more than 8 data bytes.
	ErrDataTooLong = errors.New("can: data too long")
	// ErrInvalidID indicates the ID doesn't fit the frame format.
	ErrInvalidID = errors.New("can: invalid id")
)

// Frame is a single CAN data frame.
type Frame struct {
	ID       uint32
	Extended bool
	Remote   bool
	Data     []byte
}

// Validate checks ID range and data length.
func (f Frame) Validate() error {
	if len(f.Data) > MaxDataLen {
		return ErrDataTooLong
	}
	if f.Extended && f.ID > MaxExtendedID || !f.Extended && f.ID > MaxStandardID {
		return ErrInvalidID
	}
	return nil
}

// Command returns the command byte at offset 0.
func (f Frame) Command() (byte, bool) {
	if len(f.Data) == 0 {
		return 0, false
	}
	return f.Data[0], true
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("%03x#% x", f.ID, f.Data)
}

// Sender sends frames onto the bus.
type Sender interface {
	Send(Frame) error
}

// FrameHandler is called when a frame is received.
type FrameHandler interface {
	HandleFrame(context.Context, Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(context.Context, Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame Frame) {
	f(ctx, frame)
}
