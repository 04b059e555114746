// Package codec frames presence messages for the wire.
package codec

import (
	"errors"
	"fmt"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

var (
	ErrUnknownType   = errors.New("unknown message type")
	ErrMissingSender = errors.New("message has no sender")
	ErrUnknownCodec  = errors.New("unknown codec")
)

// ByName resolves a codec from configuration.
func ByName(name string) (core.Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case MessagePack.Name():
		return MessagePack, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

func validate(t domain.MessageType, sender domain.ClientID) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if sender == "" {
		return ErrMissingSender
	}
	return nil
}

// decodePayload selects the payload shape from the envelope type.
// Bodies attached to types that carry none are ignored.
func decodePayload(t domain.MessageType, raw []byte, unmarshal func([]byte, any) error) (domain.Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch t {
	case domain.MsgActivity:
		var p domain.ActivityPayload
		if err := unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("activity payload: %w", err)
		}
		return p, nil
	case domain.MsgUpdateStatus:
		var p domain.StatusPayload
		if err := unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("status payload: %w", err)
		}
		return p, nil
	case domain.MsgSyncState:
		var p domain.SyncStatePayload
		if err := unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("sync state payload: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

// payloadFor drops payloads that do not belong to the envelope type.
func payloadFor(m domain.Message) domain.Payload {
	if m.Payload == nil || m.Payload.MessageType() != m.Type {
		return nil
	}
	return m.Payload
}
