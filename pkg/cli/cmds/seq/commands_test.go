package seq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

func TestFormatStatus(t *testing.T) {
	st := &msgs.SequencerStatus{
		Tick:          27,
		Cursor:        27,
		Routine:       6,
		TravelingDown: true,
		TableSize:     28,
		RoutineCount:  7,
		Fingerprint:   "0011223344556677",
	}
	require.Equal(t, "tick 27: cursor 27/28 backward, routine 6 (down)\ntable 0011223344556677, 7 routines", FormatStatus(st))

	st.Forward, st.TravelingDown = true, false
	st.IntervalMs = 250
	st.EpochMs = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano() / 1e6
	require.Equal(t, "tick 27: cursor 27/28 forward, routine 6\ntable 0011223344556677, 7 routines\nclock every 250ms since 2026-01-01T00:00:00Z", FormatStatus(st))
}

func TestFormatTrace(t *testing.T) {
	reply := &msgs.SequencerTraceReply{
		FromTick: 26,
		Steps: []*msgs.TraceStep{
			{Cursor: 27, Routine: 6, TravelingDown: true},
			{Cursor: 26, Routine: 3, TravelingDown: true},
		},
	}
	require.Equal(t, "tick     cursor routine down\n"+
		"27       27     6       true\n"+
		"28       26     3       true\n", FormatTrace(reply))
}

func TestParseSteps(t *testing.T) {
	n, err := ParseSteps(nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), n)
	n, err = ParseSteps([]string{"56"})
	require.NoError(t, err)
	require.Equal(t, uint32(56), n)
	_, err = ParseSteps([]string{"-1"})
	require.Error(t, err)
}

func TestWatchStatus(t *testing.T) {
	events := make(chan fx.Message, 4)
	events <- &msgs.SequencerStatus{Tick: 1}
	events <- &msgs.CommandOK{}
	events <- &msgs.SequencerStatus{Tick: 2}
	events <- &msgs.SequencerStatus{Tick: 3}
	var ticks []uint64
	err := WatchStatus(events, 2, time.Second, func(st *msgs.SequencerStatus) {
		ticks = append(ticks, st.Tick)
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ticks)
	require.Len(t, events, 1)
}

func TestWatchStatusIdle(t *testing.T) {
	events := make(chan fx.Message, 1)
	events <- &msgs.SequencerStatus{Tick: 1}
	var got int
	err := WatchStatus(events, 3, 20*time.Millisecond, func(*msgs.SequencerStatus) { got++ })
	require.Error(t, err)
	require.Equal(t, 1, got)
}
