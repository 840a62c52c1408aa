package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMessage is returned when decoding a message type this build
// does not know.
var ErrUnknownMessage = errors.New("protocol: unknown message type")

type envelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d"`
}

var decoders = map[string]func(json.RawMessage) (Message, error){
	Connect{}.Type():    decodeAs[Connect],
	Accept{}.Type():     decodeAs[Accept],
	Reject{}.Type():     decodeAs[Reject],
	Ready{}.Type():      decodeAs[Ready],
	Input{}.Type():      decodeAs[Input],
	Snapshot{}.Type():   decodeAs[Snapshot],
	Joined{}.Type():     decodeAs[Joined],
	Left{}.Type():       decodeAs[Left],
	Disconnect{}.Type(): decodeAs[Disconnect],
}

func decodeAs[T Message](data json.RawMessage) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode wraps a message in its envelope: {"t": type, "d": payload}.
func Encode(m Message) ([]byte, error) {
	if _, ok := decoders[m.Type()]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type())
	}
	d, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Type(), err)
	}
	return json.Marshal(envelope{T: m.Type(), D: d})
}

// Decode parses an envelope produced by Encode.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	dec, ok := decoders[env.T]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.T)
	}
	m, err := dec(env.D)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", env.T, err)
	}
	return m, nil
}
