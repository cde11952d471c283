package lockstep

import (
	"context"
	"fmt"
	"io"
	"time"
)

// WriteSnapshot writes one line per observed controller.
func (m *Monitor) WriteSnapshot(w io.Writer) error {
	for _, obs := range m.Snapshot() {
		state := "ok"
		if obs.Diverged {
			state = "DIVERGED"
		}
		st := obs.Status
		if _, err := fmt.Fprintf(w, "%-24s tick=%-10d cursor=%-3d routine=%d down=%-5v %s %s\n",
			obs.Controller, st.Tick, st.Cursor, st.Routine, st.TravelingDown, st.Fingerprint, state); err != nil {
			return err
		}
	}
	return nil
}

// Report writes a snapshot every interval until ctx is done.
// A zero interval only waits for ctx.
func (m *Monitor) Report(ctx context.Context, every time.Duration, w io.Writer) error {
	if every <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.WriteSnapshot(w); err != nil {
				return err
			}
		}
	}
}
