// Package websocket carries packets as binary websocket frames.
package websocket

import (
	"golang.org/x/net/websocket"

	"github.com/robotalks/lockstep/pkg/l1/comm"
)

// ReadWriter sends one packet per binary frame.
type ReadWriter struct {
	Conn *websocket.Conn
}

// New wraps conn, limiting received frames to comm.MaxPacketSize.
func New(conn *websocket.Conn) *ReadWriter {
	conn.PayloadType = websocket.BinaryFrame
	conn.MaxPayloadBytes = comm.MaxPacketSize
	return &ReadWriter{Conn: conn}
}

// ReadPacket implements comm.PacketReadWriter.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var pkt []byte
	if err := websocket.Message.Receive(p.Conn, &pkt); err != nil {
		if err == websocket.ErrFrameTooLarge {
			return nil, &comm.PacketTooLargeError{Size: p.Conn.MaxPayloadBytes + 1}
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements comm.PacketReadWriter. The connection
// serializes frames.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > comm.MaxPacketSize {
		return &comm.PacketTooLargeError{Size: len(pkt)}
	}
	return websocket.Message.Send(p.Conn, pkt)
}

// Close closes the websocket.
func (p *ReadWriter) Close() error {
	return p.Conn.Close()
}
