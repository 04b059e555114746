// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxRoomNameLen = 64

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

// ClientID identifies one presence participant. Generated once per
// service instance and never reused.
type ClientID string

type RoomName string

// NewRoomName avoids raw conversions in adapters and keeps length checks in one place.
func NewRoomName(raw string) (RoomName, error) {
	if len(raw) == 0 {
		return "", ErrRoomNameEmpty
	}
	if len(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}

// PeerInfo is a read-only view of a peer for APIs.
type PeerInfo struct {
	ID   ClientID `json:"id"`
	Self bool     `json:"self,omitempty"`
}
