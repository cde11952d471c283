package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockTickAt(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Clock{Epoch: epoch, Interval: 250 * time.Millisecond}
	testCases := []struct {
		name string
		at   time.Time
		tick uint64
		next time.Time
	}{
		{"before epoch", epoch.Add(-time.Hour), 0, epoch},
		{"at epoch", epoch, 0, epoch.Add(250 * time.Millisecond)},
		{"inside first", epoch.Add(249 * time.Millisecond), 0, epoch.Add(250 * time.Millisecond)},
		{"boundary", epoch.Add(250 * time.Millisecond), 1, epoch.Add(500 * time.Millisecond)},
		{"one hour", epoch.Add(time.Hour + 100*time.Millisecond), 14400, epoch.Add(time.Hour + 250*time.Millisecond)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.tick, c.TickAt(tc.at))
			require.Equal(t, tc.next, c.Next(tc.at))
		})
	}
}

func TestLoopClockDefaults(t *testing.T) {
	start := time.Now()
	c := (&Loop{}).Clock(start)
	require.Equal(t, DefaultInterval, c.Interval)
	require.Equal(t, start, c.Epoch)

	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c = NewLoop().WithClock(time.Second, epoch).Clock(start)
	require.Equal(t, time.Second, c.Interval)
	require.Equal(t, epoch, c.Epoch)
}

type tickRecorder struct {
	lock      sync.Mutex
	scheduled []uint64
	triggered []uint64
}

func (r *tickRecorder) Control(cc ControlContext) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if cc.Scheduled() {
		r.scheduled = append(r.scheduled, cc.Tick())
	} else {
		r.triggered = append(r.triggered, cc.Tick())
	}
	return nil
}

func TestLoopTicks(t *testing.T) {
	rec := &tickRecorder{}
	loop := NewLoop().WithClock(10*time.Millisecond, time.Time{})
	loop.AddController(PrLvControl, rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	require.Eventually(t, func() bool {
		rec.lock.Lock()
		defer rec.lock.Unlock()
		return len(rec.scheduled) >= 3
	}, time.Second, time.Millisecond)
	cancel()
	require.Equal(t, context.Canceled, <-done)

	rec.lock.Lock()
	defer rec.lock.Unlock()
	require.True(t, rec.scheduled[0] >= 1)
	for n := 1; n < len(rec.scheduled); n++ {
		require.True(t, rec.scheduled[n] > rec.scheduled[n-1])
	}
}

type testMsg struct{ val int }

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestTriggeredIterationKeepsTick(t *testing.T) {
	rec := &tickRecorder{}
	loop := NewLoop().WithClock(time.Hour, time.Time{})
	loop.AddController(PrLvControl, rec)
	var got []int
	loop.AddController(PrLvLow, ControlFunc(func(cc ControlContext) error {
		cc.Messages().ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
			if m, ok := mctx.CurrentMessage().(*testMsg); ok {
				mctx.MessageTaken()
				got = append(got, m.val)
			}
		}))
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		ctl := LoopCtlFrom(ctx)
		ctl.PostMessage(&testMsg{val: 1})
		ctl.PostMessage(&testMsg{val: 2})
		ctl.TriggerNext()
		<-ctx.Done()
		return ctx.Err()
	}))
	go func() { done <- loop.Run(ctx) }()
	require.Eventually(t, func() bool {
		rec.lock.Lock()
		defer rec.lock.Unlock()
		return len(rec.triggered) >= 1
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Empty(t, rec.scheduled)
	require.Equal(t, uint64(0), rec.triggered[0])
	require.Equal(t, []int{1, 2}, got)
}

func TestProcessMessagesStop(t *testing.T) {
	iter := &iteration{}
	iter.AddMessages(&testMsg{1}, &testMsg{2}, &testMsg{3})
	var seen []int
	iter.ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
		m := mctx.CurrentMessage().(*testMsg)
		seen = append(seen, m.val)
		if m.val == 1 {
			mctx.MessageTaken()
		}
		if m.val == 2 {
			mctx.StopProcessing()
		}
	}))
	require.Equal(t, []int{1, 2}, seen)

	seen = nil
	iter.ProcessMessages(ProcessMessageFunc(func(mctx MessageProcessingContext) {
		seen = append(seen, mctx.CurrentMessage().(*testMsg).val)
		mctx.MessageTaken()
	}))
	require.Equal(t, []int{2, 3}, seen)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil, nil).Aggregate())
	errA, errB := errors.New("a"), errors.New("b")
	err := errs.Add(errA, nil, errB).Aggregate()
	require.Error(t, err)
	require.True(t, errors.Is(err, errB))
	require.Equal(t, "2 errors: a; b", err.Error())
}
