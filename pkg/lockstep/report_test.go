package lockstep

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteSnapshot(t *testing.T) {
	m := NewMonitor()
	m.Observe("stairs/a1", statusAt(1))
	st := statusAt(2)
	st.Cursor = 5
	m.Observe("stairs/b2", st)

	var buf bytes.Buffer
	require.NoError(t, m.WriteSnapshot(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "stairs/a1 "))
	require.True(t, strings.HasSuffix(lines[0], " ok"))
	require.Contains(t, lines[1], "cursor=5 ")
	require.True(t, strings.HasSuffix(lines[1], " DIVERGED"))
}

func TestReportStops(t *testing.T) {
	m := NewMonitor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, m.Report(ctx, 0, &bytes.Buffer{}))
	require.Equal(t, context.Canceled, m.Report(ctx, time.Millisecond, &bytes.Buffer{}))
}
