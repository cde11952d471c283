package sh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
)

// Session is an open connection to one controller. It runs a Loop
// for the connection which takes the events sent by the controller.
type Session struct {
	Ref  l1.ControllerRef
	Conn l1.ControllerConn

	cancel   context.CancelFunc
	watching int32
	events   chan fx.Message
}

// eventBacklog is the number of events kept for a slow watcher.
const eventBacklog = 64

// Open connects ref through connector and starts the session loop.
func Open(connector l1.Connector, ref l1.ControllerRef) (*Session, error) {
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := connector.Connect(ctx, ref)
	if err != nil {
		cancel()
		return nil, err
	}
	s := &Session{
		Ref:    ref,
		Conn:   conn,
		cancel: cancel,
		events: make(chan fx.Message, eventBacklog),
	}
	loop := fx.NewLoop()
	if adder, ok := conn.(fx.LoopAdder); ok {
		loop.Add(adder)
	}
	loop.AddController(fx.PrLvIdle, fx.ControlFunc(s.takeEvents))
	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			glog.Errorf("session %s: %v", ref.Name(), err)
		}
	}()
	return s, nil
}

// Close stops the session loop, which closes the connection.
func (s *Session) Close() {
	s.cancel()
}

// Exec sends a command and waits for its result up to timeout.
func (s *Session) Exec(msg fx.Message, timeout time.Duration) (fx.Message, error) {
	f := s.Conn.DoCommand(msg)
	select {
	case res := <-f.ResultChan():
		return res.Msg, res.Err
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}

// Watch starts delivering events to the returned chan, until Unwatch.
// Events received before Watch are discarded.
func (s *Session) Watch() <-chan fx.Message {
	for drained := false; !drained; {
		select {
		case <-s.events:
		default:
			drained = true
		}
	}
	atomic.StoreInt32(&s.watching, 1)
	return s.events
}

// Unwatch stops delivering events.
func (s *Session) Unwatch() {
	atomic.StoreInt32(&s.watching, 0)
}

func (s *Session) takeEvents(cc fx.ControlContext) error {
	watching := atomic.LoadInt32(&s.watching) != 0
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		mctx.MessageTaken()
		if !watching {
			return
		}
		select {
		case s.events <- mctx.CurrentMessage():
		default:
			glog.V(2).Infof("session %s: event dropped", s.Ref.Name())
		}
	}))
	return nil
}
