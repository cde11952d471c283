package comm

import (
	"context"
	"errors"
	"sync/atomic"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// ErrAlreadyReplied is returned when Done is called on a command twice.
var ErrAlreadyReplied = errors.New("command already replied")

// Registrar serves one peer over a Pipe. Commands and events from the
// peer are posted to the loop and an iteration is triggered, so they
// are handled without waiting for the next tick.
type Registrar struct {
	pipe Pipe
}

// Init sets up the Registrar over rw.
func (r *Registrar) Init(rw PacketReadWriter) {
	r.pipe.ReadWriter = rw
	r.pipe.Handler = msgs.HandleTypedMsgFunc(r.post)
}

func (r *Registrar) post(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsCommand() {
		msg = &l1.CommandMsg{Command: &command{seq: typed.Sequence, msg: msg, pipe: &r.pipe}}
	}
	ctl := fx.LoopCtlFrom(ctx)
	ctl.PostMessage(msg)
	ctl.TriggerNext()
	return nil
}

// SendEvent implements Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.pipe.SendEvent(msg)
}

// Stats returns the counters of the underlying Pipe.
func (r *Registrar) Stats() PipeStats {
	return r.pipe.Stats()
}

// Run runs the underlying pipe until the peer closes.
func (r *Registrar) Run(ctx context.Context) error {
	return r.pipe.Run(ctx)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(&r.pipe)
}

// command is replied at most once.
type command struct {
	seq     uint32
	msg     fx.Message
	pipe    *Pipe
	replied int32
}

func (c *command) Msg() fx.Message {
	return c.msg
}

func (c *command) Done(reply fx.Message) error {
	if !atomic.CompareAndSwapInt32(&c.replied, 0, 1) {
		return ErrAlreadyReplied
	}
	return c.pipe.SendCommand(reply, c.seq)
}
