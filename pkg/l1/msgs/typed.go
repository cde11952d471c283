package msgs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/lockstep/pkg/framework"
)

// A type ID is laid out as:
//
//	bit 31     kind, 1 for events
//	bit 16-30  group
//	bit 15     set on replies
//	bit 0-14   id within the group
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskReply uint32 = 0x00008000

	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

var (
	// ErrNotSerializable is returned for messages without a type ID.
	ErrNotSerializable = errors.New("not serializable message")
	// ErrUnsupportedCommand is replied to commands no controller takes.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// UnknownTypeError is returned when decoding an unregistered type ID.
type UnknownTypeError struct {
	TypeID uint32
}

// Error implements error.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %08x", e.TypeID)
}

// SerializableMessage is a Message with a registered type ID.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

var (
	typesLock sync.RWMutex
	types     = make(map[uint32]SerializableMessage)
)

// Register makes message types decodable. It panics on conflicting
// type IDs.
func Register(msgs ...SerializableMessage) {
	typesLock.Lock()
	defer typesLock.Unlock()
	for _, m := range msgs {
		id := m.TypeID()
		if prev, ok := types[id]; ok {
			panic(fmt.Sprintf("type %08x registered by %T and %T", id, prev, m))
		}
		types[id] = m
	}
}

func init() {
	Register(
		&CommandOK{},
		&CommandErr{},
		&SequencerStatusQuery{},
		&SequencerStatusReply{},
		&SequencerStatus{},
		&SequencerTrace{},
		&SequencerTraceReply{},
	)
}

// Typed is the envelope of every L1 packet.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (p *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (p *Typed) Reset() { *p = Typed{} }

// String implements proto.Message.
func (p *Typed) String() string { return proto.CompactTextString(p) }

// TypedFrom encodes msg into an envelope with Sequence 0.
func TypedFrom(msg fx.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{TypeId: s.TypeID(), Message: data}, nil
}

// DecodeTyped decodes an envelope from a packet.
func DecodeTyped(data []byte) (*Typed, error) {
	typed := &Typed{}
	if err := proto.Unmarshal(data, typed); err != nil {
		return nil, err
	}
	return typed, nil
}

// Encode encodes the envelope into a packet.
func (p *Typed) Encode() ([]byte, error) {
	return proto.Marshal(p)
}

// Decode decodes the enveloped message.
func (p *Typed) Decode() (fx.Message, error) {
	typesLock.RLock()
	registered := types[p.TypeId]
	typesLock.RUnlock()
	if registered == nil {
		return nil, &UnknownTypeError{TypeID: p.TypeId}
	}
	msg := registered.NewMessage()
	if err := proto.Unmarshal(p.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, fmt.Errorf("decode type %08x: %v", p.TypeId, err)
	}
	return msg, nil
}

// Kind is TypeIDKindCommand or TypeIDKindEvent.
func (p *Typed) Kind() uint32 {
	return p.TypeId & TypeIDMaskKind
}

// IsCommand is true for commands and their replies.
func (p *Typed) IsCommand() bool {
	return p.Kind() == TypeIDKindCommand
}

// IsReply is true for command replies.
func (p *Typed) IsReply() bool {
	return p.IsCommand() && p.TypeId&TypeIDMaskReply != 0
}

// IsEvent is true for events.
func (p *Typed) IsEvent() bool {
	return p.Kind() == TypeIDKindEvent
}

// TypedMsgHandler handles a decoded message with its envelope.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, fx.Message, *Typed) error
}

// HandleTypedMsgFunc is the func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, fx.Message, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg fx.Message, typed *Typed) error {
	return f(ctx, msg, typed)
}
