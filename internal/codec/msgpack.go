package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

type msgpackCodec struct{}

// MessagePack is the compact binary codec.
var MessagePack core.Codec = msgpackCodec{}

type msgpackEnvelope struct {
	Type     domain.MessageType `msgpack:"type"`
	SenderID domain.ClientID    `msgpack:"senderId"`
	SentAt   int64              `msgpack:"sentAt"`
	Payload  msgpack.RawMessage `msgpack:"payload,omitempty"`
}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Encode(m domain.Message) (core.Frame, error) {
	env := msgpackEnvelope{Type: m.Type, SenderID: m.SenderID, SentAt: m.SentAt}
	if p := payloadFor(m); p != nil {
		raw, err := msgpack.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		env.Payload = raw
	}
	return msgpack.Marshal(&env)
}

func (msgpackCodec) Decode(f core.Frame) (domain.Message, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(f, &env); err != nil {
		return domain.Message{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := validate(env.Type, env.SenderID); err != nil {
		return domain.Message{}, err
	}
	p, err := decodePayload(env.Type, env.Payload, msgpack.Unmarshal)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{Type: env.Type, SenderID: env.SenderID, SentAt: env.SentAt, Payload: p}, nil
}
