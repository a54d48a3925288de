package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danmuck/nexusctl/internal/protocol/frame"
	"github.com/danmuck/nexusctl/internal/protocol/schema"
	"github.com/danmuck/nexusctl/internal/protocol/tlv"
)

// ExecuteRequest is the wire shape of one Execute call.
type ExecuteRequest struct {
	Service string
	Command string
	Args    []string
}

func (r ExecuteRequest) Validate() error {
	if strings.TrimSpace(r.Service) == "" {
		return fmt.Errorf("execute missing service")
	}
	if strings.TrimSpace(r.Command) == "" {
		return fmt.Errorf("execute missing command")
	}
	return nil
}

// Result is the wire shape of one Execute outcome. On success Message is the
// raw command payload, byte for byte; clients comma-split it for completion.
type Result struct {
	OK      bool
	Message string
}

func EncodeExecuteFrame(messageID uint64, req ExecuteRequest, limits frame.Limits) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	args := req.Args
	if args == nil {
		args = []string{}
	}
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	fields := []tlv.Field{
		tlv.String(schema.FieldService, req.Service),
		tlv.String(schema.FieldCommand, req.Command),
		tlv.Bytes(schema.FieldArgs, rawArgs),
	}
	if err := schema.Validate(schema.MsgExecute, fields); err != nil {
		return nil, err
	}
	return encodeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgExecute,
	}, tlv.EncodeFields(fields), limits)
}

func DecodeExecuteFrame(f frame.Frame) (ExecuteRequest, error) {
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return ExecuteRequest{}, err
	}
	if err := schema.Validate(schema.MsgExecute, fields); err != nil {
		return ExecuteRequest{}, err
	}
	req := ExecuteRequest{
		Service: tlv.GetString(fields, schema.FieldService),
		Command: tlv.GetString(fields, schema.FieldCommand),
	}
	if err := json.Unmarshal(tlv.GetBytes(fields, schema.FieldArgs), &req.Args); err != nil {
		return ExecuteRequest{}, fmt.Errorf("execute args: %w", err)
	}
	if err := req.Validate(); err != nil {
		return ExecuteRequest{}, err
	}
	return req, nil
}

func EncodeResultFrame(messageID uint64, res Result, limits frame.Limits) ([]byte, error) {
	status := schema.StatusOK
	flags := frame.FlagResponse
	if !res.OK {
		status = schema.StatusError
		flags |= frame.FlagError
	}
	fields := []tlv.Field{
		tlv.String(schema.FieldStatus, status),
		tlv.String(schema.FieldMessage, res.Message),
	}
	if err := schema.Validate(schema.MsgResult, fields); err != nil {
		return nil, err
	}
	return encodeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgResult,
		Flags:       flags,
	}, tlv.EncodeFields(fields), limits)
}

func DecodeResultFrame(f frame.Frame) (Result, error) {
	if f.Header.MessageType != schema.MsgResult {
		return Result{}, fmt.Errorf("result frame has message_type=%d", f.Header.MessageType)
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return Result{}, err
	}
	if err := schema.Validate(schema.MsgResult, fields); err != nil {
		return Result{}, err
	}
	status := tlv.GetString(fields, schema.FieldStatus)
	if status != schema.StatusOK && status != schema.StatusError {
		return Result{}, fmt.Errorf("result frame has status %q", status)
	}
	return Result{
		OK:      status == schema.StatusOK,
		Message: tlv.GetString(fields, schema.FieldMessage),
	}, nil
}

func EncodeListServicesFrame(messageID uint64, limits frame.Limits) ([]byte, error) {
	return encodeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgListServices,
	}, nil, limits)
}

func encodeFrame(h frame.Header, payload []byte, limits frame.Limits) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.WriteFrame(&buf, frame.Frame{Header: h, Payload: payload}, limits); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
