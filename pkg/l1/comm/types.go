package comm

import "fmt"

// MaxPacketSize bounds a packet on every transport.
const MaxPacketSize = 1 << 20

// PacketTooLargeError reports a packet exceeding MaxPacketSize.
type PacketTooLargeError struct {
	Size int
}

func (e *PacketTooLargeError) Error() string {
	return fmt.Sprintf("packet too large: %d bytes", e.Size)
}

// PacketReadWriter carries one encoded message per packet.
// ReadPacket is called from a single goroutine, WritePacket may be
// called concurrently.
type PacketReadWriter interface {
	ReadPacket() ([]byte, error)
	WritePacket([]byte) error
}

// PacketReadWriteCloser is a PacketReadWriter over a session, e.g. a
// TCP or websocket connection.
type PacketReadWriteCloser interface {
	PacketReadWriter
	Close() error
}
