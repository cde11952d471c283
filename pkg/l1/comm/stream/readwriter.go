// Package stream carries packets over byte streams such as TCP, each
// packet prefixed by its length as a little-endian uint32.
package stream

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/robotalks/lockstep/pkg/l1/comm"
)

const headerSize = 4

// ReadWriter frames packets on a stream. Writes are serialized so
// concurrent packets never interleave.
type ReadWriter struct {
	stream io.ReadWriter
	header [headerSize]byte
	wlock  sync.Mutex
}

// New creates a ReadWriter over s.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{stream: s}
}

// ReadPacket implements comm.PacketReadWriter. A stream ending between
// packets is io.EOF, inside a packet io.ErrUnexpectedEOF.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	if _, err := io.ReadFull(p.stream, p.header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(p.header[:])
	if size > comm.MaxPacketSize {
		return nil, &comm.PacketTooLargeError{Size: int(size)}
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.stream, pkt); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements comm.PacketReadWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > comm.MaxPacketSize {
		return &comm.PacketTooLargeError{Size: len(pkt)}
	}
	buf := make([]byte, headerSize+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[headerSize:], pkt)
	p.wlock.Lock()
	defer p.wlock.Unlock()
	_, err := p.stream.Write(buf)
	return err
}

// Close closes the stream if it's closable.
func (p *ReadWriter) Close() error {
	if closer, ok := p.stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
