package domain

// Payload is the type-dependent body of a Message. The set of
// implementations is closed: each one belongs to exactly one MessageType.
type Payload interface {
	MessageType() MessageType
}

type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// ActivityPayload is an application-defined activity record.
type ActivityPayload struct {
	Kind string         `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Data map[string]any `json:"data,omitempty" msgpack:"data,omitempty"`
}

func (ActivityPayload) MessageType() MessageType { return MsgActivity }

type StatusPayload struct {
	Status   Status         `json:"status" msgpack:"status"`
	Metadata map[string]any `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

func (StatusPayload) MessageType() MessageType { return MsgUpdateStatus }

// SyncStatePayload carries an application-defined state snapshot.
type SyncStatePayload struct {
	State map[string]any `json:"state,omitempty" msgpack:"state,omitempty"`
}

func (SyncStatePayload) MessageType() MessageType { return MsgSyncState }
