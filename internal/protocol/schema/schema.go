package schema

import (
	"fmt"

	"github.com/danmuck/nexusctl/internal/protocol/tlv"
)

// Message type IDs.
const (
	MsgExecute      uint16 = 1
	MsgResult       uint16 = 2
	MsgListServices uint16 = 3
	MsgServiceList  uint16 = 4
)

// Field IDs.
const (
	FieldService uint8 = 1
	FieldCommand uint8 = 2
	FieldArgs    uint8 = 3

	FieldStatus  uint8 = 10
	FieldMessage uint8 = 11
)

// Result status values carried in FieldStatus.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

type Requirement struct {
	ID   uint8
	Type uint8
}

type ValidationError struct {
	MessageType uint16
	FieldID     uint8
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var requirements = map[uint16][]Requirement{
	MsgExecute: {
		{FieldService, tlv.TypeString},
		{FieldCommand, tlv.TypeString},
		{FieldArgs, tlv.TypeBytes},
	},
	MsgResult: {
		{FieldStatus, tlv.TypeString},
		{FieldMessage, tlv.TypeString},
	},
	// MsgListServices has no payload; MsgServiceList carries a JSON envelope,
	// not TLV fields.
	MsgListServices: {},
}

// Validate enforces required fields and required field types for a message
// type. Unknown fields are ignored.
func Validate(messageType uint16, fields []tlv.Field) error {
	reqs, ok := requirements[messageType]
	if !ok {
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
