package routine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/lockstep/pkg/sequencer"
)

func TestConfigLoadFile(t *testing.T) {
	conf := &Config{Interval: time.Second, StatusEvery: 1}
	require.NoError(t, conf.LoadFile("testdata/order.yaml"))
	require.Equal(t, 250*time.Millisecond, conf.Interval)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), conf.Epoch.UTC())
	require.Equal(t, uint64(4), conf.StatusEvery)
	require.Equal(t, []int8{-1, 2, -3, 3, 1, -2}, conf.Order)

	table, err := conf.Table()
	require.NoError(t, err)
	require.Equal(t, 6, table.Size())
	require.Equal(t, 3, table.RoutineCount())
}

func TestConfigParseKeepsUnset(t *testing.T) {
	epoch := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	conf := &Config{Interval: time.Second, Epoch: epoch, StatusEvery: 2}
	require.NoError(t, conf.Parse([]byte("order: [1, -2]\n")))
	require.Equal(t, time.Second, conf.Interval)
	require.Equal(t, epoch, conf.Epoch)
	require.Equal(t, uint64(2), conf.StatusEvery)
	require.Equal(t, []int8{1, -2}, conf.Order)
}

func TestConfigRejectsBadOrder(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"zero entry", "order: [1, 0, -2]\n"},
		{"too short", "order: [1]\n"},
		{"empty", "order: []\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := NewConfig()
			require.NoError(t, conf.Parse([]byte(tc.yaml)))
			_, err := conf.Table()
			require.Error(t, err)
		})
	}

	conf := NewConfig()
	require.NoError(t, conf.Parse([]byte("order: []\n")))
	_, err := conf.Table()
	require.ErrorIs(t, err, sequencer.ErrTableTooShort)

	conf = NewConfig()
	require.Error(t, conf.Parse([]byte("order: [1, 300]\n")))
	require.Error(t, conf.Parse([]byte("interval: -1s\n")))
}

func TestConfigDefaultTable(t *testing.T) {
	table, err := (&Config{}).Table()
	require.NoError(t, err)
	require.Equal(t, sequencer.DefaultTable().Fingerprint(), table.Fingerprint())
}

func TestConfigResolve(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	conf := &Config{Interval: 100 * time.Millisecond}
	require.NoError(t, conf.Resolve(now))
	require.Equal(t, now, conf.Epoch)
	require.Equal(t, now, conf.Clock().Epoch)

	require.Error(t, (&Config{}).Resolve(now))

	d, err := (&Config{Interval: time.Second, Epoch: now, StatusEvery: 3}).NewDispatcher(nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3), d.StatusEvery)
	require.Equal(t, time.Second, d.Clock.Interval)
}

func TestConfigResolveOnce(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "order.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("interval: 2s\norder: [1, -2, 3]\n"), 0644))
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	conf := &Config{Interval: time.Second, OrderFile: fn}
	require.NoError(t, conf.Resolve(now))
	require.Equal(t, 2*time.Second, conf.Interval)

	// the file isn't read again
	require.NoError(t, os.WriteFile(fn, []byte("order: [1]\n"), 0644))
	require.NoError(t, conf.Resolve(now.Add(time.Hour)))
	require.Equal(t, now, conf.Epoch)
	d := conf.MustNewDispatcher(nil, nil)
	require.Equal(t, 2*time.Second, d.Clock.Interval)
	require.Equal(t, []int8{1, -2, 3}, conf.Order)
}

func TestEpochValue(t *testing.T) {
	var epoch time.Time
	v := &epochValue{t: &epoch}
	require.Equal(t, "", v.String())
	require.NoError(t, v.Set("2026-01-01T00:00:00Z"))
	require.Equal(t, "2026-01-01T00:00:00Z", v.String())
	require.Error(t, v.Set("yesterday"))
}

func TestConfigStepMeta(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	conf := &Config{Interval: time.Second, Epoch: epoch}
	step, err := conf.StepMeta()
	require.NoError(t, err)
	require.Equal(t, epoch, step.Epoch)
	require.Equal(t, time.Second, step.Interval)
	require.Equal(t, sequencer.DefaultTable().Fingerprint(), step.Fingerprint)

	conf.Order = []int8{1, 0}
	_, err = conf.StepMeta()
	require.Error(t, err)
}
