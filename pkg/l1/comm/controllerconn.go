package comm

import (
	"context"
	"errors"
	"sync"
	"time"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// DefaultCommandExpiration is how long a command waits for its result.
const DefaultCommandExpiration = time.Second

// ErrConnClosed fails commands still waiting when the session ends.
var ErrConnClosed = errors.New("controller connection closed")

// ControllerConn implements l1.ControllerConn over a Pipe.
// Results are matched by command sequence. Events are posted to the
// loop the conn is added to.
type ControllerConn struct {
	Expiration time.Duration

	pipe    Pipe
	lastSeq uint32
	pending map[uint32]*commandFuture
	closed  bool
	lock    sync.Mutex
}

// Init sets up the conn over rw.
func (c *ControllerConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe.ReadWriter = rw
	c.pipe.Handler = msgs.HandleTypedMsgFunc(c.handleTypedMsg)
	c.pending = make(map[uint32]*commandFuture)
}

func (c *ControllerConn) nextSeq() uint32 {
	// 0 is never used as a command sequence.
	if c.lastSeq++; c.lastSeq == 0 {
		c.lastSeq++
	}
	return c.lastSeq
}

// DoCommand implements ControllerConn.
func (c *ControllerConn) DoCommand(msg fx.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	f := &commandFuture{
		seq:      c.nextSeq(),
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan l1.Result, 1),
	}
	if c.closed {
		f.complete(l1.Result{Err: ErrConnClosed})
		return f
	}
	if err := c.pipe.SendCommand(msg, f.seq); err != nil {
		f.complete(l1.Result{Err: err})
		return f
	}
	c.pending[f.seq] = f
	return f
}

// Pending is the number of commands waiting for results.
func (c *ControllerConn) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.pending)
}

// AddToLoop implements LoopAdder.
func (c *ControllerConn) AddToLoop(l *fx.Loop) {
	switch rw := c.pipe.ReadWriter.(type) {
	case fx.LoopAdder:
		l.Add(rw)
	case fx.Runnable:
		l.AddRunnable(rw)
	}
	l.AddRunnable(fx.RunFunc(func(ctx context.Context) error {
		defer c.failPending()
		return c.pipe.Run(ctx)
	}))
	l.AddController(fx.PrLvIdle, fx.ControlFunc(c.expire))
}

func (c *ControllerConn) handleTypedMsg(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		ctl := fx.LoopCtlFrom(ctx)
		ctl.PostMessage(msg)
		ctl.TriggerNext()
		return nil
	}
	c.lock.Lock()
	f, ok := c.pending[typed.Sequence]
	delete(c.pending, typed.Sequence)
	c.lock.Unlock()
	if !ok {
		return nil
	}
	result := l1.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.complete(result)
	return nil
}

func (c *ControllerConn) expire(cc fx.ControlContext) error {
	now := cc.Time()
	c.lock.Lock()
	defer c.lock.Unlock()
	for seq, f := range c.pending {
		if !f.expireAt.After(now) {
			delete(c.pending, seq)
			f.complete(l1.Result{Err: context.DeadlineExceeded})
		}
	}
	return nil
}

func (c *ControllerConn) failPending() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
	for seq, f := range c.pending {
		delete(c.pending, seq)
		f.complete(l1.Result{Err: ErrConnClosed})
	}
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	result   chan l1.Result
}

func (f *commandFuture) complete(r l1.Result) {
	f.result <- r
	close(f.result)
}

func (f *commandFuture) ResultChan() <-chan l1.Result {
	return f.result
}
