package sh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

func TestFormatInfo(t *testing.T) {
	info := l1.ControllerInfo{Ref: l1.ControllerRef{Type: "stairs", ID: "a1"}}
	require.Equal(t, "stairs/a1", FormatInfo(info))
	info.Meta.Description = "lower flight"
	require.Equal(t, "stairs/a1: lower flight", FormatInfo(info))
	info.Meta.Step = &l1.StepMeta{
		Epoch:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:    time.Second,
		Fingerprint: "00aa",
	}
	require.Equal(t, "stairs/a1: lower flight [00aa@2026-01-01T00:00:00Z+1s]", FormatInfo(info))
}

func TestFormatMessage(t *testing.T) {
	require.Equal(t, "OK", FormatMessage(msgs.NewCommandOK()))
	require.Equal(t, "SequencerTrace steps:3", FormatMessage(&msgs.SequencerTrace{Steps: 3}))
	require.Equal(t, "SequencerStatusQuery", FormatMessage(&msgs.SequencerStatusQuery{}))
}

// publishingConn posts a status event on every tick of the session loop.
type publishingConn struct{}

func (c *publishingConn) DoCommand(msg fx.Message) l1.CommandFuture {
	f := resultFuture(make(chan l1.Result, 1))
	f <- l1.Result{Msg: &msgs.SequencerStatusReply{Status: &msgs.SequencerStatus{Tick: 9}}}
	return f
}

func (c *publishingConn) AddToLoop(l *fx.Loop) {
	var tick uint64
	l.AddRunnable(fx.RunFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		ctl := fx.LoopCtlFrom(ctx)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				tick++
				ctl.PostMessage(&msgs.SequencerStatus{Tick: tick})
				ctl.TriggerNext()
			}
		}
	}))
}

type resultFuture chan l1.Result

func (f resultFuture) ResultChan() <-chan l1.Result { return f }

type testConnector struct {
	conn l1.ControllerConn
}

func (c *testConnector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	return nil, nil
}

func (c *testConnector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	return c.conn, nil
}

func TestSession(t *testing.T) {
	ref := l1.ControllerRef{Type: "stairs", ID: "a1"}
	s, err := Open(&testConnector{conn: &publishingConn{}}, ref)
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Exec(&msgs.SequencerStatusQuery{}, time.Second)
	require.NoError(t, err)
	require.Equal(t, uint64(9), res.(*msgs.SequencerStatusReply).Status.Tick)

	events := s.Watch()
	var last uint64
	for n := 0; n < 3; n++ {
		select {
		case msg := <-events:
			st := msg.(*msgs.SequencerStatus)
			require.True(t, st.Tick > last)
			last = st.Tick
		case <-time.After(time.Second):
			t.Fatal("no event")
		}
	}
	s.Unwatch()
}
