package wire

import (
	"encoding/json"
	"fmt"

	"github.com/danmuck/nexusctl/internal/protocol/frame"
	"github.com/danmuck/nexusctl/internal/protocol/schema"
	"github.com/danmuck/nexusctl/internal/registry"
)

// serviceListEnvelope is the MsgServiceList payload. Descriptor metadata is
// nested, so it rides as a JSON envelope rather than flat TLV fields; order
// in Services is registration order and must survive the round trip.
type serviceListEnvelope struct {
	Services []registry.ServiceDescriptor `json:"services"`
}

func EncodeServiceListFrame(messageID uint64, services []registry.ServiceDescriptor, limits frame.Limits) ([]byte, error) {
	if services == nil {
		services = []registry.ServiceDescriptor{}
	}
	payload, err := json.Marshal(serviceListEnvelope{Services: services})
	if err != nil {
		return nil, err
	}
	return encodeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgServiceList,
		Flags:       frame.FlagResponse,
	}, payload, limits)
}

func DecodeServiceListFrame(f frame.Frame) ([]registry.ServiceDescriptor, error) {
	if f.Header.MessageType != schema.MsgServiceList {
		return nil, fmt.Errorf("service list frame has message_type=%d", f.Header.MessageType)
	}
	var env serviceListEnvelope
	if err := json.Unmarshal(f.Payload, &env); err != nil {
		return nil, fmt.Errorf("service list payload: %w", err)
	}
	return env.Services, nil
}
