package signal

import (
	"encoding/json"

	"github.com/dkeye/Presence/internal/domain"
)

// Server to browser event names.
const (
	evWelcome    = "welcome"
	evPeerJoined = "peer_joined"
	evPeerLeft   = "peer_left"
	evPeers      = "peers"
	evActivity   = "activity"
	evStatus     = "status"
	evSyncState  = "sync_state"
	evPong       = "pong"
	evWhoAmI     = "whoami"
	evError      = "error"
)

type typeEvent struct {
	Type string `json:"type"`
}

type welcomeEvent struct {
	Type      string          `json:"type"`
	ClientID  domain.ClientID `json:"clientId"`
	Room      domain.RoomName `json:"room"`
	Connected bool            `json:"connected"`
}

type peerEvent struct {
	Type     string          `json:"type"`
	ClientID domain.ClientID `json:"clientId"`
}

type peersEvent struct {
	Type    string            `json:"type"`
	Clients []domain.ClientID `json:"clients"`
}

type messageEvent struct {
	Type     string          `json:"type"`
	ClientID domain.ClientID `json:"clientId"`
	Payload  domain.Payload  `json:"payload"`
}

type whoAmIEvent struct {
	Type      string          `json:"type"`
	SID       string          `json:"sid"`
	ClientID  domain.ClientID `json:"clientId"`
	Room      domain.RoomName `json:"room"`
	Connected bool            `json:"connected"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// inbound is the browser to server envelope.
type inbound struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
