// Package framework runs controllers on a tick clock.
//
// A Loop calls its Controllers once per tick, ordered by priority
// level. Runnables (transports, device links) live in their own
// goroutines and hand work to the loop with PostMessage/TriggerNext,
// so everything a Controller touches is owned by the loop goroutine.
package framework

import (
	"context"
	"time"
)

// Named is implemented by Runnables with a name for logs.
type Named interface {
	Name() string
}

// Runnable runs in its own goroutine until ctx is done.
type Runnable interface {
	Run(ctx context.Context) error
}

// Message is anything posted to the loop.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller is called once per iteration.
// An error is logged and doesn't stop the loop.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext is the state of the current iteration.
type ControlContext interface {
	// Context is canceled when the loop stops.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Tick is the number of whole intervals from the loop epoch to
	// the last scheduled iteration.
	Tick() uint64
	// Scheduled is false for iterations requested by TriggerNext.
	Scheduled() bool
	PriorityLevel() int
	// Messages holds what was posted before the iteration started.
	Messages() MessageStore

	LoopControl
}

// PriorityLevels is the number of priority levels, 0 runs first.
const PriorityLevels int = 16

// Priority levels used in this repo.
const (
	PrLvHigh    int = 4
	PrLvNormal  int = 8
	PrLvLow     int = 12
	PrLvIdle    int = PriorityLevels - 1
	PrLvControl     = PrLvNormal

	// PrLvPostProc runs after all controllers of the tick.
	PrLvPostProc = PrLvIdle - 1
)

// LoopControl is available to Runnables through LoopCtlFrom.
type LoopControl interface {
	// PostMessage queues msg for the next iteration.
	PostMessage(Message)
	// TriggerNext requests an iteration right away. It keeps the tick
	// of the last scheduled iteration.
	TriggerNext()
}

// MessageStore is the message queue of an iteration.
type MessageStore interface {
	// ProcessMessages visits queued messages in order.
	ProcessMessages(MessageProcessor)
	MessageAppender
}

// MessageAppender queues messages.
type MessageAppender interface {
	// AddMessages appends msgs for controllers later in the iteration.
	AddMessages(msgs ...Message)
}

// MessageProcessor visits one message at a time.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is passed to MessageProcessor.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the current message from the store.
	MessageTaken()
	// StopProcessing skips the rest of the messages, they stay queued.
	StopProcessing()

	MessageAppender
}
