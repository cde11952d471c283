package link

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/routine"
)

// Link forwards dispatched steps to the firmware.
// Sending never blocks the loop: the reply to a step is checked when
// the next step is dispatched.
type Link struct {
	client  *Client
	closer  io.Closer
	pending *Command
	// step of pending
	pendingStep routine.Step
	skipped     uint64
}

// New creates a Link over rw.
func New(rw io.ReadWriter) *Link {
	l := &Link{client: NewClient(NewConn(rw))}
	if closer, ok := rw.(io.Closer); ok {
		l.closer = closer
	}
	return l
}

// Open opens the serial device at path. The port is expected to be
// configured already, e.g. with stty.
func Open(path string) (*Link, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open firmware %s: %v", path, err)
	}
	return New(f), nil
}

// Client returns the underlying Client.
func (l *Link) Client() *Client {
	return l.client
}

// AddToLoop implements LoopAdder.
func (l *Link) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(fx.NamedRun("firmware-link", l))
}

// Execute implements routine.Routine.
func (l *Link) Execute(cc fx.ControlContext, step routine.Step) error {
	var err error
	if l.pending != nil {
		select {
		case r := <-l.pending.ResultChan():
			if r.Err != nil {
				err = fmt.Errorf("firmware rejected %s: %v", l.pendingStep, r.Err)
			}
		default:
			glog.Warningf("firmware didn't reply to %s", l.pendingStep)
		}
		l.pending = nil
	}
	if !l.client.Conn().State().IsReady() {
		if l.skipped++; l.skipped == 1 {
			glog.Warning("firmware link not ready, skipping routines")
		}
		return err
	}
	if l.skipped > 0 {
		glog.Infof("firmware link ready after %d skipped routines", l.skipped)
		l.skipped = 0
	}
	cmd := l.client.Do(RunRoutine(step.Routine, step.Cursor, step.Down))
	l.pending, l.pendingStep = cmd, step
	return err
}

// Run implements Runnable.
func (l *Link) Run(ctx context.Context) error {
	if l.closer != nil {
		defer l.closer.Close()
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.client.Run(ctx)
	}()
	for {
		select {
		case err := <-errCh:
			return err
		case state := <-l.client.StateChan():
			if !state.IsReceiving() {
				glog.Infof("firmware link %s", state)
			}
		case pkt := <-l.client.EventChan():
			l.handleEvent(pkt)
		}
	}
}

func (l *Link) handleEvent(pkt *Packet) {
	switch pkt.Code {
	case EventRoutineDone:
		if len(pkt.Data) > 0 {
			glog.V(2).Infof("firmware finished routine %d", pkt.Data[0])
		}
	case EventFault:
		glog.Errorf("firmware fault % x", pkt.Data)
	default:
		glog.V(2).Infof("firmware event %s", pkt)
	}
}
