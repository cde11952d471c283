// Package l1 defines how L2 components talk to L1 controllers.
//
// An L1 controller owns a device and a sequencer and registers itself
// through one or more Registrars. L2 tools find controllers with a
// Connector and send commands over a ControllerConn.
package l1

import (
	"context"

	fx "github.com/robotalks/lockstep/pkg/framework"
)

// Registrar publishes a controller to L2.
type Registrar interface {
	// SendEvent sends an event to every connected L2 peer.
	SendEvent(context.Context, fx.Message) error
}

// Command is a received command, Done sends the reply.
type Command interface {
	Msg() fx.Message
	Done(fx.Message) error
}

// CommandMsg is posted to the loop for each received Command.
type CommandMsg struct {
	Command Command
}

// NewMessage implements Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// Connector finds and connects controllers.
type Connector interface {
	Discover(context.Context) ([]ControllerInfo, error)
	Connect(context.Context, ControllerRef) (ControllerConn, error)
}

// ControllerConn is an L2 connection to one controller.
type ControllerConn interface {
	DoCommand(fx.Message) CommandFuture
}

// Result is the reply of a command, Err is set when the controller
// rejected it or the connection failed.
type Result struct {
	Msg fx.Message
	Err error
}

// CommandFuture delivers exactly one Result.
type CommandFuture interface {
	ResultChan() <-chan Result
}
