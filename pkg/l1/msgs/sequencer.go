package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/lockstep/pkg/framework"
)

// SequencerStatus is the Event message published after a tick is
// dispatched, also embedded in SequencerStatusReply.
type SequencerStatus struct {
	Tick          uint64 `protobuf:"varint,1,opt,name=tick,proto3" json:"tick,omitempty"`
	Cursor        uint32 `protobuf:"varint,2,opt,name=cursor,proto3" json:"cursor,omitempty"`
	Forward       bool   `protobuf:"varint,3,opt,name=forward,proto3" json:"forward,omitempty"`
	Routine       uint32 `protobuf:"varint,4,opt,name=routine,proto3" json:"routine,omitempty"`
	TravelingDown bool   `protobuf:"varint,5,opt,name=traveling_down,proto3" json:"traveling_down,omitempty"`
	TableSize     uint32 `protobuf:"varint,6,opt,name=table_size,proto3" json:"table_size,omitempty"`
	RoutineCount  uint32 `protobuf:"varint,7,opt,name=routine_count,proto3" json:"routine_count,omitempty"`
	Fingerprint   string `protobuf:"bytes,8,opt,name=fingerprint,proto3" json:"fingerprint,omitempty"`
	IntervalMs    uint32 `protobuf:"varint,9,opt,name=interval_ms,proto3" json:"interval_ms,omitempty"`
	EpochMs       int64  `protobuf:"varint,10,opt,name=epoch_ms,proto3" json:"epoch_ms,omitempty"`
}

// NewMessage implements Message.
func (m *SequencerStatus) NewMessage() fx.Message { return &SequencerStatus{} }

// TypeID implements SerializableMessage.
func (m *SequencerStatus) TypeID() uint32 { return SequencerStatusEventTypeID }

// Serializable implements SerializableMessage.
func (m *SequencerStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SequencerStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SequencerStatus) Reset() { *m = SequencerStatus{} }

// String implements proto.Message.
func (m *SequencerStatus) String() string { return proto.CompactTextString(m) }

// SequencerStatusQuery queries the status.
type SequencerStatusQuery struct {
}

// NewMessage implements Message.
func (m *SequencerStatusQuery) NewMessage() fx.Message { return &SequencerStatusQuery{} }

// TypeID implements SerializableMessage.
func (m *SequencerStatusQuery) TypeID() uint32 { return SequencerStatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *SequencerStatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SequencerStatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SequencerStatusQuery) Reset() { *m = SequencerStatusQuery{} }

// String implements proto.Message.
func (m *SequencerStatusQuery) String() string { return proto.CompactTextString(m) }

// SequencerStatusReply is the response for SequencerStatusQuery.
type SequencerStatusReply struct {
	Status *SequencerStatus `protobuf:"bytes,1,opt,name=status,proto3" json:"status,omitempty"`
}

// NewMessage implements Message.
func (m *SequencerStatusReply) NewMessage() fx.Message { return &SequencerStatusReply{} }

// TypeID implements SerializableMessage.
func (m *SequencerStatusReply) TypeID() uint32 { return SequencerStatusReplyTypeID }

// Serializable implements SerializableMessage.
func (m *SequencerStatusReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SequencerStatusReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SequencerStatusReply) Reset() { *m = SequencerStatusReply{} }

// String implements proto.Message.
func (m *SequencerStatusReply) String() string { return proto.CompactTextString(m) }

// SequencerTrace asks for the next Steps routines without moving the
// live sequencer.
type SequencerTrace struct {
	Steps uint32 `protobuf:"varint,1,opt,name=steps,proto3" json:"steps,omitempty"`
}

// NewMessage implements Message.
func (m *SequencerTrace) NewMessage() fx.Message { return &SequencerTrace{} }

// TypeID implements SerializableMessage.
func (m *SequencerTrace) TypeID() uint32 { return SequencerTraceTypeID }

// Serializable implements SerializableMessage.
func (m *SequencerTrace) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SequencerTrace) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SequencerTrace) Reset() { *m = SequencerTrace{} }

// String implements proto.Message.
func (m *SequencerTrace) String() string { return proto.CompactTextString(m) }

// SequencerTraceReply is the response for SequencerTrace.
type SequencerTraceReply struct {
	FromTick uint64       `protobuf:"varint,1,opt,name=from_tick,proto3" json:"from_tick,omitempty"`
	Steps    []*TraceStep `protobuf:"bytes,2,rep,name=steps,proto3" json:"steps,omitempty"`
}

// NewMessage implements Message.
func (m *SequencerTraceReply) NewMessage() fx.Message { return &SequencerTraceReply{} }

// TypeID implements SerializableMessage.
func (m *SequencerTraceReply) TypeID() uint32 { return SequencerTraceReplyTypeID }

// Serializable implements SerializableMessage.
func (m *SequencerTraceReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *SequencerTraceReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *SequencerTraceReply) Reset() { *m = SequencerTraceReply{} }

// String implements proto.Message.
func (m *SequencerTraceReply) String() string { return proto.CompactTextString(m) }

// TraceStep is one entry of SequencerTraceReply.
type TraceStep struct {
	Cursor        uint32 `protobuf:"varint,1,opt,name=cursor,proto3" json:"cursor,omitempty"`
	Routine       uint32 `protobuf:"varint,2,opt,name=routine,proto3" json:"routine,omitempty"`
	TravelingDown bool   `protobuf:"varint,3,opt,name=traveling_down,proto3" json:"traveling_down,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *TraceStep) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TraceStep) Reset() { *m = TraceStep{} }

// String implements proto.Message.
func (m *TraceStep) String() string { return proto.CompactTextString(m) }
