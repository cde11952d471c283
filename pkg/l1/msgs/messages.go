package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/lockstep/pkg/framework"
)

// CommandOK is replied to commands which have no result.
type CommandOK struct{}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() fx.Message { return &CommandOK{} }

// TypeID implements SerializableMessage.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// Serializable implements SerializableMessage.
func (m *CommandOK) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is replied to failed commands.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return NewCommandErrFromMsg(err.Error())
}

// NewCommandErrFromMsg creates a CommandErr.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// Type ID groups. GroupCustom and above are free for other message
// sets registered with Register.
const (
	GroupCommand   uint32 = 0x00000000
	GroupSequencer uint32 = 0x00030000
	GroupCustom    uint32 = 0x7f000000
)

// Type IDs of the messages in this package.
const (
	CommandOKTypeID  uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID uint32 = GroupCommand | TypeIDMaskReply | 0x0001

	SequencerStatusQueryTypeID uint32 = GroupSequencer | 0x0000
	SequencerStatusReplyTypeID uint32 = SequencerStatusQueryTypeID | TypeIDMaskReply
	SequencerStatusEventTypeID uint32 = GroupSequencer | TypeIDKindEvent | 0x0000
	SequencerTraceTypeID       uint32 = GroupSequencer | 0x0001
	SequencerTraceReplyTypeID  uint32 = SequencerTraceTypeID | TypeIDMaskReply
)

