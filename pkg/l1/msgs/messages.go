package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/us1.go/pkg/framework"
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

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

// CommandErr is the generic message representing command error.
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

// UltrasonicReadQuery reads the distance measured by a sensor,
// starting the sensor if needed.
type UltrasonicReadQuery struct {
	Slot uint32 `protobuf:"varint,1,opt,name=slot,proto3" json:"slot,omitempty"`
}

// NewMessage implements Message.
func (m *UltrasonicReadQuery) NewMessage() fx.Message { return &UltrasonicReadQuery{} }

// TypeID implements SerializableMessage.
func (m *UltrasonicReadQuery) TypeID() uint32 { return UltrasonicReadQueryTypeID }

// Serializable implements SerializableMessage.
func (m *UltrasonicReadQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *UltrasonicReadQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *UltrasonicReadQuery) Reset() { *m = UltrasonicReadQuery{} }

// String implements proto.Message.
func (m *UltrasonicReadQuery) String() string { return proto.CompactTextString(m) }

// UltrasonicReading is the distance of one sensor.
// Valid is false if the sensor didn't respond.
type UltrasonicReading struct {
	Slot     uint32 `protobuf:"varint,1,opt,name=slot,proto3" json:"slot,omitempty"`
	Name     string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Distance uint32 `protobuf:"varint,3,opt,name=distance,proto3" json:"distance,omitempty"`
	Valid    bool   `protobuf:"varint,4,opt,name=valid,proto3" json:"valid,omitempty"`
}

// NewMessage implements Message.
func (m *UltrasonicReading) NewMessage() fx.Message { return &UltrasonicReading{} }

// TypeID implements SerializableMessage.
func (m *UltrasonicReading) TypeID() uint32 { return UltrasonicReadingTypeID }

// Serializable implements SerializableMessage.
func (m *UltrasonicReading) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *UltrasonicReading) ProtoMessage() {}

// Reset implements proto.Message.
func (m *UltrasonicReading) Reset() { *m = UltrasonicReading{} }

// String implements proto.Message.
func (m *UltrasonicReading) String() string { return proto.CompactTextString(m) }

// UltrasonicReadingsQuery reads all sensors.
type UltrasonicReadingsQuery struct {
}

// NewMessage implements Message.
func (m *UltrasonicReadingsQuery) NewMessage() fx.Message { return &UltrasonicReadingsQuery{} }

// TypeID implements SerializableMessage.
func (m *UltrasonicReadingsQuery) TypeID() uint32 { return UltrasonicReadingsQueryTypeID }

// Serializable implements SerializableMessage.
func (m *UltrasonicReadingsQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *UltrasonicReadingsQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *UltrasonicReadingsQuery) Reset() { *m = UltrasonicReadingsQuery{} }

// String implements proto.Message.
func (m *UltrasonicReadingsQuery) String() string { return proto.CompactTextString(m) }

// UltrasonicReadingsReply is the response for UltrasonicReadingsQuery.
type UltrasonicReadingsReply struct {
	Readings []*UltrasonicReading `protobuf:"bytes,1,rep,name=readings,proto3" json:"readings,omitempty"`
}

// NewMessage implements Message.
func (m *UltrasonicReadingsReply) NewMessage() fx.Message { return &UltrasonicReadingsReply{} }

// TypeID implements SerializableMessage.
func (m *UltrasonicReadingsReply) TypeID() uint32 { return UltrasonicReadingsReplyTypeID }

// Serializable implements SerializableMessage.
func (m *UltrasonicReadingsReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *UltrasonicReadingsReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *UltrasonicReadingsReply) Reset() { *m = UltrasonicReadingsReply{} }

// String implements proto.Message.
func (m *UltrasonicReadingsReply) String() string { return proto.CompactTextString(m) }

// UltrasonicReadings is the event publishing the last readings.
// A reading is valid only if it's fresh.
type UltrasonicReadings struct {
	Readings []*UltrasonicReading `protobuf:"bytes,1,rep,name=readings,proto3" json:"readings,omitempty"`
	// Timestamp is in milliseconds since epoch.
	Timestamp int64 `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// NewMessage implements Message.
func (m *UltrasonicReadings) NewMessage() fx.Message { return &UltrasonicReadings{} }

// TypeID implements SerializableMessage.
func (m *UltrasonicReadings) TypeID() uint32 { return UltrasonicReadingsTypeID }

// Serializable implements SerializableMessage.
func (m *UltrasonicReadings) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *UltrasonicReadings) ProtoMessage() {}

// Reset implements proto.Message.
func (m *UltrasonicReadings) Reset() { *m = UltrasonicReadings{} }

// String implements proto.Message.
func (m *UltrasonicReadings) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupCommand    uint32 = 0x00000000
	GroupUltrasonic uint32 = 0x00030000
	GroupCustom     uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandOKTypeID               uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID              uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	UltrasonicReadQueryTypeID     uint32 = GroupUltrasonic | 0x0000
	UltrasonicReadingTypeID       uint32 = UltrasonicReadQueryTypeID | TypeIDMaskReply
	UltrasonicReadingsQueryTypeID uint32 = GroupUltrasonic | 0x0001
	UltrasonicReadingsReplyTypeID uint32 = UltrasonicReadingsQueryTypeID | TypeIDMaskReply
	UltrasonicReadingsTypeID      uint32 = GroupUltrasonic | TypeIDKindEvent | 0x0000
)
