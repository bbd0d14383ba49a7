// Package framework runs controllers in a periodic loop fed by
// background runners.
package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Message defines the abstract message to be
// consumed in a controlling loop.
type Message interface {
	// NewMessage creates an empty message.
	NewMessage() Message
}

// Controller defines the abstract controlling logic.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// TimeSource provides the time for controlling logic.
type TimeSource interface {
	Time() time.Time
}

// Clock is a TimeSource which is also able to block the caller.
// Drivers polling hardware take a Clock so the waits can be
// driven by a fake in tests.
type Clock interface {
	TimeSource
	// Sleep blocks the caller for the duration.
	Sleep(time.Duration)
}

// ControlContext provides the context of current control
// iteration. Time is the start of the iteration.
type ControlContext interface {
	TimeSource
	Context() context.Context
	// Messages retrieves the messages posted before the
	// iteration started.
	Messages() MessageStore

	LoopControl
}

// Priority levels, controllers of a lower level run first.
const (
	PrLvTop int = iota
	PrLvSense
	PrLvControl
	PrLvIdle

	PriorityLevels
)

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext starts the next iteration without waiting
	// for the interval.
	TriggerNext()
}

// MessageStore provides read/write access to a list of messages.
type MessageStore interface {
	ProcessMessages(MessageProcessor)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for current message.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the message from the store.
	MessageTaken()
	// StopProcessing skips the rest of the messages.
	StopProcessing()
}
