package core

import "github.com/dkeye/Presence/internal/domain"

// RoomInfo is a read-only view of a room as seen from this process.
type RoomInfo struct {
	Name     domain.RoomName `json:"name"`
	Sessions int             `json:"session_count"`
	Peers    int             `json:"peer_count"`
	Online   bool            `json:"online"`
}
