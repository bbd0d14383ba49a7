package us1

import (
	"errors"

	"github.com/robotalks/us1.go/pkg/board"
)

var (
	// ErrSlotIndexOutOfRange indicates a slot without addresses.
	ErrSlotIndexOutOfRange = errors.New("slot index out of range")
	// ErrTooManyDevices indicates all slots are registered.
	ErrTooManyDevices = board.ErrTooManyDevices
	// ErrUnknownCommand indicates a frame with a command not understood.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMalformedFrame indicates a measurement frame too short.
	ErrMalformedFrame = errors.New("malformed measurement")
	// ErrInvalidSlot indicates a slot not registered.
	ErrInvalidSlot = errors.New("invalid slot")
	// ErrDeviceUnresponsive indicates a sensor didn't confirm start.
	ErrDeviceUnresponsive = errors.New("dead")
)

// DeviceError is the error type returned by Board.
type DeviceError = board.DeviceError
