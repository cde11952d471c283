package link

import (
	"fmt"
	"io"
	"time"
)

// Operation codes understood by the firmware.
const (
	// CodeRunRoutine starts a routine, data is [routine, down, cursor].
	CodeRunRoutine byte = 0x02
	// CodeHold stops the current routine.
	CodeHold byte = 0x04

	// EventRoutineDone reports a routine finished, data is [routine].
	EventRoutineDone byte = 0x82
	// EventFault reports a hardware fault, data is a fault code.
	EventFault byte = 0x84

	eventBit = 0x80
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a random packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Packet contains the information of a parsed packet.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsEvent tells events from command replies.
func (p *Packet) IsEvent() bool {
	return p.Code&eventBit != 0
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	l := byte(len(p.Data))
	if l < 7 {
		b := make([]byte, 0, l+2)
		b = append(b, byte(p.Seq), (p.Code&0x8f)|(l<<4))
		return append(b, p.Data...)
	}
	b := make([]byte, 0, int(l)+3)
	b = append(b, byte(p.Seq), (p.Code&0x8f)|0x70, l)
	return append(b, p.Data...)
}

// WriteTo writes encoded bytes with a single Write so packets from
// concurrent writers never interleave.
func (p *Packet) WriteTo(w io.Writer) (int, error) {
	return w.Write(p.Bytes())
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	return fmt.Sprintf("#%d code=%02x data=% x", p.Seq, p.Code, p.Data)
}

// RunRoutine builds the CodeRunRoutine packet.
func RunRoutine(routine, cursor int, down bool) *Packet {
	var d byte
	if down {
		d = 1
	}
	return &Packet{Code: CodeRunRoutine, Data: []byte{byte(routine), d, byte(cursor)}}
}
