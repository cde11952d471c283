package comm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/msgs"
)

// KindError is returned when a command is sent as an event or the
// other way around.
type KindError struct {
	TypeID uint32
	Want   uint32
}

// Error implements error.
func (e *KindError) Error() string {
	want := "a command"
	if e.Want == msgs.TypeIDKindEvent {
		want = "an event"
	}
	return fmt.Sprintf("message type %08x is not %s", e.TypeID, want)
}

// PipeStats counts packets through a Pipe.
type PipeStats struct {
	Sent      uint64
	Received  uint64
	Malformed uint64
}

// Pipe exchanges Typed packets with one peer.
// Sends are serialized, receiving happens in Run.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler
	// Peer names the other end in logs.
	Peer string

	sendLock  sync.Mutex
	sent      uint64
	received  uint64
	malformed uint64
}

// SendCommand sends msg as command seq, msg must be a command or
// reply type.
func (p *Pipe) SendCommand(msg fx.Message, seq uint32) error {
	return p.send(msg, msgs.TypeIDKindCommand, seq)
}

// SendEvent sends msg which must be an event type.
func (p *Pipe) SendEvent(msg fx.Message) error {
	return p.send(msg, msgs.TypeIDKindEvent, 0)
}

func (p *Pipe) send(msg fx.Message, kind, seq uint32) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if typed.Kind() != kind {
		return &KindError{TypeID: typed.TypeId, Want: kind}
	}
	typed.Sequence = seq
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	err = p.ReadWriter.WritePacket(pkt)
	p.sendLock.Unlock()
	if err == nil {
		atomic.AddUint64(&p.sent, 1)
	}
	return err
}

// Stats returns the packet counters.
func (p *Pipe) Stats() PipeStats {
	return PipeStats{
		Sent:      atomic.LoadUint64(&p.sent),
		Received:  atomic.LoadUint64(&p.received),
		Malformed: atomic.LoadUint64(&p.malformed),
	}
}

// Run receives packets until the peer closes.
// A command of an unknown type is answered with CommandErr so the
// peer doesn't wait for the expiration.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err == io.EOF {
			glog.V(2).Infof("pipe %s: closed by peer, %+v", p.Peer, p.Stats())
			return nil
		}
		if err != nil {
			return err
		}
		atomic.AddUint64(&p.received, 1)
		typed, err := msgs.DecodeTyped(pkt)
		if err != nil {
			atomic.AddUint64(&p.malformed, 1)
			glog.Warningf("pipe %s: malformed packet (%d bytes): %v", p.Peer, len(pkt), err)
			continue
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.V(2).Infof("pipe %s: %v", p.Peer, err)
			if typed.IsCommand() {
				if err = p.SendCommand(msgs.NewCommandErr(err), typed.Sequence); err != nil {
					return err
				}
			}
			continue
		}
		if p.Handler == nil {
			continue
		}
		if err = p.Handler.HandleTypedMsg(ctx, msg, typed); err != nil {
			return err
		}
	}
}

// Close closes the ReadWriter if it's closable.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder. A ReadWriter needing its own
// goroutine, e.g. an MQTT subscription, is added too.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	switch rw := p.ReadWriter.(type) {
	case fx.LoopAdder:
		loop.Add(rw)
	case fx.Runnable:
		loop.AddRunnable(rw)
	}
	loop.AddRunnable(p)
}
