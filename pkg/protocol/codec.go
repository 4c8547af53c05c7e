package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ErrMalformed is returned for frames that are not a valid envelope.
var ErrMalformed = errors.New("malformed message")

// Codec converts between frames and messages. Binary reports whether frames go out
// as WebSocket binary messages.
type Codec interface {
	Name() string
	Binary() bool
	Encode(msgType string, payload any) ([]byte, error)
	Decode(frame []byte) (Message, error)
	Unmarshal(data []byte, v any) error
}

// NewCodec returns the codec registered under name ("json" or "msgpack").
func NewCodec(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}

// DecodePayload unmarshals the message data into v. A message without data leaves v untouched.
func DecodePayload(c Codec, m Message, v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := c.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformed, m.Type, err)
	}
	return nil
}

// JSONCodec is the text protocol. The payload travels as a JSON-encoded string in
// the data field: {"type":"reg","data":"{\"name\":\"...\"}","id":0}.
type JSONCodec struct{}

type jsonEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   int             `json:"id"`
}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(msgType string, payload any) ([]byte, error) {
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(string(inner))
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Type: msgType, Data: data, ID: 0})
}

// Decode accepts data as a JSON string (the standard form) or as an inline JSON value.
func (JSONCodec) Decode(frame []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	msg := Message{Type: env.Type, ID: env.ID}
	raw := bytes.TrimSpace(env.Data)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		msg.Data = []byte(s)
	default:
		msg.Data = raw
	}
	return msg, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec is the binary protocol: a msgpack map {type, data, id} with the
// payload as nested msgpack. Struct fields use their json tags.
type MsgpackCodec struct{}

type msgpackEnvelope struct {
	Type string             `msgpack:"type"`
	Data msgpack.RawMessage `msgpack:"data"`
	ID   int                `msgpack:"id"`
}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (c MsgpackCodec) Encode(msgType string, payload any) ([]byte, error) {
	inner, err := c.marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return msgpack.Marshal(&msgpackEnvelope{Type: msgType, Data: inner})
}

func (MsgpackCodec) Decode(frame []byte) (Message, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(frame, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	msg := Message{Type: env.Type, ID: env.ID}
	// a nil payload encodes as the single byte 0xc0
	if len(env.Data) > 0 && !(len(env.Data) == 1 && env.Data[0] == msgpcode.Nil) {
		msg.Data = env.Data
	}
	return msg, nil
}

func (MsgpackCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
