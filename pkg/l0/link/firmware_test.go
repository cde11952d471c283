package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testFirmware plays the device end of a link. It answers sync
// requests and writes whatever respond returns for each command.
type testFirmware struct {
	conn     net.Conn
	received chan *Packet
	respond  func(cmd *Packet) []*Packet
}

func newTestFirmware(conn net.Conn, respond func(cmd *Packet) []*Packet) *testFirmware {
	return &testFirmware{conn: conn, received: make(chan *Packet, 16), respond: respond}
}

// replyTo acknowledges cmd, or rejects it when failed.
func replyTo(cmd *Packet, failed bool) *Packet {
	reply := &Packet{Code: cmd.Code, Data: []byte{byte(cmd.Seq)}}
	if failed {
		reply.Code |= 1
	}
	return reply
}

// routineFirmware acknowledges every routine with a reply followed by
// EventRoutineDone, rejecting the routines in reject.
func routineFirmware(reject ...byte) func(*Packet) []*Packet {
	rejected := make(map[byte]bool)
	for _, r := range reject {
		rejected[r] = true
	}
	return func(cmd *Packet) []*Packet {
		routine := cmd.Data[0]
		return []*Packet{
			replyTo(cmd, rejected[routine]),
			{Code: EventRoutineDone, Data: []byte{routine}},
		}
	}
}

func (fw *testFirmware) run() {
	// writes go through their own goroutine as net.Pipe blocks until
	// the link reads.
	outCh := make(chan []byte, 16)
	go func() {
		for b := range outCh {
			if _, err := fw.conn.Write(b); err != nil {
				return
			}
		}
	}()
	defer close(outCh)

	var parser Parser
	seq := PacketSeq(1)
	buf := make([]byte, 1)
	for {
		if _, err := fw.conn.Read(buf); err != nil {
			return
		}
		pr := parser.Parse(buf[0])
		if pr.Sync != 0 {
			outCh <- []byte{pr.Sync, byte(seq)}
		}
		if pr.Packet == nil {
			continue
		}
		fw.received <- pr.Packet
		for _, out := range fw.respond(pr.Packet) {
			out.Seq, seq = seq, seq.Next()
			outCh <- out.Bytes()
		}
	}
}

// startClient runs a Client against fw until the test ends.
func startClient(t *testing.T, respond func(*Packet) []*Packet) (*Client, *testFirmware) {
	cliSide, fwSide := net.Pipe()
	fw := newTestFirmware(fwSide, respond)
	go fw.run()

	c := NewClient(NewConn(cliSide))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	go func() {
		for {
			select {
			case <-c.StateChan():
			case <-ctx.Done():
				return
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		cliSide.Close()
		fwSide.Close()
		<-done
	})
	require.Eventually(t, func() bool { return c.Conn().State().IsReady() }, time.Second, time.Millisecond)
	return c, fw
}

func waitResult(t *testing.T, cmd *Command) Result {
	select {
	case r := <-cmd.ResultChan():
		return r
	case <-time.After(time.Second):
		t.Fatal("no result")
	}
	return Result{}
}
