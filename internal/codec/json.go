package codec

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

type jsonCodec struct{}

// JSON is the default codec.
var JSON core.Codec = jsonCodec{}

type jsonEnvelope struct {
	Type     domain.MessageType `json:"type"`
	SenderID domain.ClientID    `json:"senderId"`
	SentAt   int64              `json:"sentAt"`
	Payload  json.RawMessage    `json:"payload,omitempty"`
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(m domain.Message) (core.Frame, error) {
	env := jsonEnvelope{Type: m.Type, SenderID: m.SenderID, SentAt: m.SentAt}
	if p := payloadFor(m); p != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

func (jsonCodec) Decode(f core.Frame) (domain.Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(f, &env); err != nil {
		return domain.Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := validate(env.Type, env.SenderID); err != nil {
		return domain.Message{}, err
	}
	if string(env.Payload) == "null" {
		env.Payload = nil
	}
	p, err := decodePayload(env.Type, env.Payload, json.Unmarshal)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{Type: env.Type, SenderID: env.SenderID, SentAt: env.SentAt, Payload: p}, nil
}

// DecodePayloadJSON decodes a JSON payload body for t. Types without a
// payload yield nil.
func DecodePayloadJSON(t domain.MessageType, raw []byte) (domain.Payload, error) {
	if string(raw) == "null" {
		return nil, nil
	}
	return decodePayload(t, raw, json.Unmarshal)
}
