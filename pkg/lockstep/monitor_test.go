package lockstep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/lockstep/pkg/l1/msgs"
	"github.com/robotalks/lockstep/pkg/sequencer"
)

func statusAt(tick uint64) *msgs.SequencerStatus {
	seq := sequencer.NewDefault()
	seq.AdvanceBy(tick)
	table := seq.Table()
	return &msgs.SequencerStatus{
		Tick:          tick,
		Cursor:        uint32(seq.Cursor()),
		Forward:       seq.Direction() == sequencer.Forward,
		Routine:       uint32(seq.Routine()),
		TravelingDown: seq.TravelingDown(),
		TableSize:     uint32(table.Size()),
		RoutineCount:  uint32(table.RoutineCount()),
		Fingerprint:   table.Fingerprint(),
	}
}

func TestMonitorInLockstep(t *testing.T) {
	m := NewMonitor()
	for tick := uint64(1); tick < 120; tick++ {
		require.Empty(t, m.Observe("stairs/a1", statusAt(tick)))
		require.Empty(t, m.Observe("stairs/b2", statusAt(tick)))
	}
	snap := m.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "stairs/a1", snap[0].Controller)
	require.Equal(t, "stairs/b2", snap[1].Controller)
	require.False(t, snap[0].Diverged)
	require.Equal(t, uint64(119), snap[1].Status.Tick)
}

func TestMonitorState(t *testing.T) {
	m := NewMonitor()
	st := statusAt(30)
	st.Cursor = 2
	divs := m.Observe("stairs/a1", st)
	require.Len(t, divs, 1)
	require.Equal(t, KindState, divs[0].Kind)
	require.Equal(t, uint64(30), divs[0].Tick)
	require.Equal(t, "stairs/a1 diverged at tick 30 (state): cursor 2 backward, expected 24 backward", divs[0].String())

	st = statusAt(5)
	st.Cursor = 40
	divs = m.Observe("stairs/a1", st)
	require.Len(t, divs, 1)
	require.Equal(t, KindState, divs[0].Kind)
	require.True(t, m.Snapshot()[0].Diverged)
}

func TestMonitorFingerprint(t *testing.T) {
	m := NewMonitor()
	require.Empty(t, m.Observe("stairs/a1", statusAt(3)))
	st := statusAt(3)
	st.Fingerprint = "0000000000000000"
	divs := m.Observe("stairs/b2", st)
	require.Len(t, divs, 1)
	require.Equal(t, KindFingerprint, divs[0].Kind)
	require.Equal(t, "stairs/a1", divs[0].Peer)
}

func TestMonitorFingerprintMajority(t *testing.T) {
	m := NewMonitor()
	bad := statusAt(9)
	bad.Fingerprint = "0000000000000000"
	require.Empty(t, m.Observe("stairs/a1", bad))

	// tie goes to the first controller by name
	divs := m.Observe("stairs/b2", statusAt(9))
	require.Len(t, divs, 1)
	require.Equal(t, KindFingerprint, divs[0].Kind)
	require.Equal(t, "stairs/a1", divs[0].Peer)

	require.Empty(t, m.Observe("stairs/c3", statusAt(9)))

	m.Forget("stairs/a1")
	require.Empty(t, m.Observe("stairs/b2", statusAt(10)))
	require.Empty(t, m.Observe("stairs/c3", statusAt(10)))
	snap := m.Snapshot()
	require.Len(t, snap, 2)
	for _, obs := range snap {
		require.False(t, obs.Diverged, obs.Controller)
	}
}

func TestMonitorFingerprintIgnoresStateDivergence(t *testing.T) {
	m := NewMonitor()
	st := statusAt(4)
	st.Cursor = 20
	st.Fingerprint = "0000000000000000"
	divs := m.Observe("stairs/a1", st)
	require.Len(t, divs, 1)
	require.Equal(t, KindState, divs[0].Kind)

	require.Empty(t, m.Observe("stairs/b2", statusAt(4)))

	divs = m.Observe("stairs/a1", st)
	require.Len(t, divs, 2)
	require.Equal(t, KindFingerprint, divs[1].Kind)
	require.Equal(t, "stairs/b2", divs[1].Peer)
}

func TestMonitorRoutine(t *testing.T) {
	m := NewMonitor()
	require.Empty(t, m.Observe("stairs/a1", statusAt(7)))
	st := statusAt(7)
	st.Routine = (st.Routine + 1) % 7
	divs := m.Observe("stairs/b2", st)
	require.Len(t, divs, 1)
	require.Equal(t, KindRoutine, divs[0].Kind)
	require.Equal(t, "stairs/a1", divs[0].Peer)

	// the diverged one is not used as reference
	require.Empty(t, m.Observe("stairs/c3", statusAt(7)))

	m.Forget("stairs/b2")
	require.Len(t, m.Snapshot(), 2)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "state", KindState.String())
	require.Equal(t, "fingerprint", KindFingerprint.String())
	require.Equal(t, "routine", KindRoutine.String())
	require.Equal(t, "Kind(9)", Kind(9).String())
}
