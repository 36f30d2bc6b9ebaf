package protocol

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/ugorji/go/codec"
)

// ErrMalformedMessage is returned by Decode when a message cannot be parsed
// into an Envelope.
var ErrMalformedMessage = errors.New("malformed message")

var jsonHandle = newJSONHandle()

func newJSONHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.MapType = reflect.TypeOf(map[string]interface{}(nil))
	jh.Canonical = true
	return jh
}

// Envelope is one decoded FBP-NP message.
type Envelope struct {
	Protocol Protocol
	Command  string
	Payload  map[string]interface{}
}

// String returns protocol:command, the form used in logs.
func (e *Envelope) String() string {
	return fmt.Sprintf("%s:%s", e.Protocol, e.Command)
}

// DecodePayload maps the payload object onto out, which must be a pointer to
// a struct carrying json tags.
func (e *Envelope) DecodePayload(out interface{}) error {
	return DecodeMap(e.Payload, out)
}

// Value returns a top-level payload entry.
func (e *Envelope) Value(key string) (interface{}, bool) {
	v, ok := e.Payload[key]
	return v, ok
}

type wireEnvelope struct {
	Protocol *string     `json:"protocol"`
	Command  *string     `json:"command"`
	Payload  interface{} `json:"payload"`
}

type outEnvelope struct {
	Protocol Protocol    `json:"protocol"`
	Command  string      `json:"command"`
	Payload  interface{} `json:"payload"`
}

// Encode produces the wire form of a message. A nil payload is sent as an
// empty object.
func Encode(protocol Protocol, command string, payload interface{}) ([]byte, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Marshal(outEnvelope{
		Protocol: protocol,
		Command:  command,
		Payload:  payload,
	})
}

// Decode parses a wire message.
func Decode(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if w.Protocol == nil {
		return nil, fmt.Errorf("%w: missing protocol", ErrMalformedMessage)
	}
	if w.Command == nil {
		return nil, fmt.Errorf("%w: missing command", ErrMalformedMessage)
	}

	payload, ok := w.Payload.(map[string]interface{})
	if !ok {
		payload = map[string]interface{}{}
	}

	return &Envelope{
		Protocol: Protocol(*w.Protocol),
		Command:  *w.Command,
		Payload:  payload,
	}, nil
}

// Marshal encodes v as JSON with the package codec.
func Marshal(v interface{}) ([]byte, error) {
	var b []byte
	enc := codec.NewEncoderBytes(&b, jsonHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b, nil
}

// Unmarshal decodes JSON data into v with the package codec.
func Unmarshal(data []byte, v interface{}) error {
	dec := codec.NewDecoderBytes(data, jsonHandle)
	return dec.Decode(v)
}

// DecodeMap maps a generic JSON object onto out using json tags.
func DecodeMap(in interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
