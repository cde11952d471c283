package websocket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/comm"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

func TestServerSession(t *testing.T) {
	addr := freeAddr(t)
	hub := comm.NewHub()
	loop := fx.NewLoop().WithClock(time.Hour, time.Time{})
	loop.Add(&Server{Address: addr, Hub: hub})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var rw comm.PacketReadWriteCloser
	var err error
	require.Eventually(t, func() bool {
		rw, err = Dialer("ws://" + addr)(ctx)
		return err == nil
	}, time.Second, 10*time.Millisecond)
	defer rw.Close()
	require.Eventually(t, func() bool { return hub.Sessions() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, hub.SendEvent(ctx, &msgs.SequencerStatus{Tick: 5, Routine: 2}))
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	typed, err := msgs.DecodeTyped(pkt)
	require.NoError(t, err)
	require.True(t, typed.IsEvent())
	msg, err := typed.Decode()
	require.NoError(t, err)
	require.Equal(t, uint64(5), msg.(*msgs.SequencerStatus).Tick)

	tooLarge := make([]byte, comm.MaxPacketSize+1)
	var sizeErr *comm.PacketTooLargeError
	require.ErrorAs(t, rw.WritePacket(tooLarge), &sizeErr)
}

func TestDialerBadURL(t *testing.T) {
	_, err := Dialer("ws://%zz")(context.Background())
	require.Error(t, err)
}
