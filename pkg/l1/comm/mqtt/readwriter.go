package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/robotalks/lockstep/pkg/l1"
)

// Topic suffixes under a controller's name.
const (
	TopicCmd  = "cmd"
	TopicMsg  = "msg"
	TopicMeta = "meta"
)

// Topics builds the topic of ref with suffix.
func Topics(ref l1.ControllerRef, suffix string) string {
	return ref.Name() + "/" + suffix
}

// ReadWriter receives packets from SubTopic and publishes to PubTopic.
// It must be Run to subscribe.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

// ForConnector receives type/id/msg and publishes type/id/cmd.
func (p *ReadWriter) ForConnector(ref l1.ControllerRef) *ReadWriter {
	p.SubTopic, p.PubTopic = Topics(ref, TopicMsg), Topics(ref, TopicCmd)
	return p
}

// ForController receives type/id/cmd and publishes type/id/msg.
func (p *ReadWriter) ForController(ref l1.ControllerRef) *ReadWriter {
	p.SubTopic, p.PubTopic = Topics(ref, TopicCmd), Topics(ref, TopicMsg)
	return p
}

// ReadPacket implements comm.PacketReadWriter. It returns io.EOF
// once the ReadWriter stops.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements comm.PacketReadWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.receive)
	defer sub.Close()
	select {
	case <-ctx.Done():
	case <-p.done:
	}
	p.Close()
	return ctx.Err()
}

// Close stops delivering packets.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

// receive blocks the MQTT client until the packet is taken so packets
// keep their order.
func (p *ReadWriter) receive(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
