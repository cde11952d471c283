package l1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestControllerRef(t *testing.T) {
	ref := ControllerRef{Type: "stairs", ID: "a1"}
	require.True(t, ref.IsValid())
	require.Equal(t, "stairs/a1", ref.Name())

	parsed, ok := ParseControllerRef(ref.Name())
	require.True(t, ok)
	require.Equal(t, ref, parsed)

	for _, name := range []string{"", "stairs", "/a1", "stairs/", "stairs/a1/msg", "+/a1"} {
		_, ok := ParseControllerRef(name)
		require.False(t, ok, name)
	}
}

func TestInStep(t *testing.T) {
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := func(fp string) *StepMeta {
		return &StepMeta{Epoch: epoch, Interval: 100 * time.Millisecond, Fingerprint: fp}
	}
	a := ControllerInfo{Meta: ControllerMeta{Step: step("00aa")}}
	b := ControllerInfo{Meta: ControllerMeta{Step: step("00aa")}}
	b.Meta.Step.Epoch = epoch.In(time.FixedZone("x", 3600))
	require.True(t, a.InStep(b))

	c := ControllerInfo{Meta: ControllerMeta{Step: step("00bb")}}
	require.False(t, a.InStep(c))
	require.False(t, a.InStep(ControllerInfo{}))
	require.Equal(t, "00aa@2026-01-01T00:00:00Z+100ms", a.Meta.Step.String())
}

func TestMatchLabels(t *testing.T) {
	info := ControllerInfo{Meta: ControllerMeta{Labels: map[string]string{"flight": "lower", "side": "east"}}}
	require.True(t, info.MatchLabels(nil))
	require.True(t, info.MatchLabels(map[string]string{"flight": "lower"}))
	require.False(t, info.MatchLabels(map[string]string{"flight": "upper"}))
	require.False(t, info.MatchLabels(map[string]string{"level": "2"}))
}
