package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPacketSeq(t *testing.T) {
	for n := 0; n < 256; n++ {
		s := PacketSeq(n)
		require.Equal(t, n > 0 && n < 0xf0, s.IsValid(), "%02x", n)
		next := s.Next()
		require.True(t, next.IsValid())
		if n > 0 && n < 0xef {
			require.Equal(t, PacketSeq(n+1), next)
		} else {
			require.Equal(t, PacketSeq(1), next, "%02x", n)
		}
	}
	require.True(t, NewPacketSeq().IsValid())
}

func TestPacketBytes(t *testing.T) {
	seven := []byte{1, 2, 3, 4, 5, 6, 7}
	testCases := []struct {
		name   string
		packet *Packet
		expect []byte
	}{
		{"hold", &Packet{Seq: 9, Code: CodeHold}, []byte{9, 0x04}},
		{"inline length", &Packet{Seq: 9, Code: 0x02, Data: []byte{1}}, []byte{9, 0x12, 1}},
		{"length byte", &Packet{Seq: 9, Code: 0x02, Data: seven}, append([]byte{9, 0x72, 7}, seven...)},
		{"event inline length", &Packet{Seq: 9, Code: EventRoutineDone, Data: []byte{4}}, []byte{9, 0x92, 4}},
		{"event length byte", &Packet{Seq: 9, Code: EventRoutineDone, Data: seven}, append([]byte{9, 0xf2, 7}, seven...)},
		{"run routine down", RunRoutine(6, 27, true), []byte{0, 0x32, 6, 1, 27}},
		{"run routine up", RunRoutine(3, 3, false), []byte{0, 0x32, 3, 0, 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.packet.Bytes())
			var buf bytes.Buffer
			n, err := tc.packet.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, len(tc.expect), n)
			require.Equal(t, tc.expect, buf.Bytes())
		})
	}
}

func TestPacketKind(t *testing.T) {
	require.True(t, (&Packet{Code: EventRoutineDone}).IsEvent())
	require.True(t, (&Packet{Code: EventFault}).IsEvent())
	require.False(t, RunRoutine(0, 0, false).IsEvent())
	require.Equal(t, "#3 code=82 data=05", (&Packet{Seq: 3, Code: EventRoutineDone, Data: []byte{5}}).String())
}
