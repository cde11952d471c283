package msgs

import (
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/lockstep/pkg/framework"
)

func TestTypedStatusEvent(t *testing.T) {
	status := &SequencerStatus{
		Tick:          1234567890123,
		Cursor:        27,
		Routine:       6,
		TravelingDown: true,
		TableSize:     28,
		RoutineCount:  7,
		Fingerprint:   "0011223344556677",
		IntervalMs:    250,
		EpochMs:       1767225600000,
	}
	typed, err := TypedFrom(status)
	require.NoError(t, err)
	require.True(t, typed.IsEvent())
	require.False(t, typed.IsCommand())
	typed.Sequence = 9

	data, err := typed.Encode()
	require.NoError(t, err)
	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	require.Equal(t, SequencerStatusEventTypeID, decoded.TypeId)
	require.Equal(t, uint32(9), decoded.Sequence)

	msg, err := decoded.Decode()
	require.NoError(t, err)
	require.Equal(t, status, msg)
}

func TestTypedTraceReply(t *testing.T) {
	reply := &SequencerTraceReply{
		FromTick: 3,
		Steps: []*TraceStep{
			{Cursor: 4, Routine: 4, TravelingDown: true},
			{Cursor: 5, Routine: 5},
		},
	}
	typed, err := TypedFrom(reply)
	require.NoError(t, err)
	require.True(t, typed.IsCommand())
	require.Equal(t, TypeIDMaskReply, typed.TypeId&TypeIDMaskReply)
	msg, err := typed.Decode()
	require.NoError(t, err)
	require.Equal(t, reply, msg)
}

func TestTypedCommandErr(t *testing.T) {
	typed, err := TypedFrom(NewCommandErr(ErrUnsupportedCommand))
	require.NoError(t, err)
	msg, err := typed.Decode()
	require.NoError(t, err)
	require.EqualError(t, msg.(*CommandErr), ErrUnsupportedCommand.Error())
}

type unknownMsg struct{}

func (m *unknownMsg) NewMessage() fx.Message { return &unknownMsg{} }

func TestTypedErrors(t *testing.T) {
	_, err := TypedFrom(&unknownMsg{})
	require.Equal(t, ErrNotSerializable, err)

	typed := &Typed{TypeId: GroupCustom | 0x42}
	_, err = typed.Decode()
	require.Equal(t, &UnknownTypeError{TypeID: GroupCustom | 0x42}, err)
}

func TestTypedKinds(t *testing.T) {
	testCases := []struct {
		msg     SerializableMessage
		command bool
		reply   bool
	}{
		{&SequencerStatusQuery{}, true, false},
		{&SequencerStatusReply{}, true, true},
		{&SequencerTrace{}, true, false},
		{&SequencerTraceReply{}, true, true},
		{NewCommandOK(), true, true},
		{&SequencerStatus{}, false, false},
	}
	for _, tc := range testCases {
		typed, err := TypedFrom(tc.msg)
		require.NoError(t, err)
		require.Equal(t, tc.command, typed.IsCommand(), "%T", tc.msg)
		require.Equal(t, !tc.command, typed.IsEvent(), "%T", tc.msg)
		require.Equal(t, tc.reply, typed.IsReply(), "%T", tc.msg)
	}
}

func TestRegisterConflict(t *testing.T) {
	require.Panics(t, func() { Register(&SequencerTrace{}) })
}
