package domain

type MessageType string

const (
	MsgJoin         MessageType = "JOIN"
	MsgLeave        MessageType = "LEAVE"
	MsgUpdateStatus MessageType = "UPDATE_STATUS"
	MsgActivity     MessageType = "ACTIVITY"
	MsgSyncState    MessageType = "SYNC_STATE"
	MsgHeartbeat    MessageType = "HEARTBEAT"
	MsgPresence     MessageType = "PRESENCE"
)

// MessageTypes lists the closed set of envelope types in declaration order.
var MessageTypes = []MessageType{
	MsgJoin, MsgLeave, MsgUpdateStatus, MsgActivity, MsgSyncState, MsgHeartbeat, MsgPresence,
}

func (t MessageType) Valid() bool {
	switch t {
	case MsgJoin, MsgLeave, MsgUpdateStatus, MsgActivity, MsgSyncState, MsgHeartbeat, MsgPresence:
		return true
	}
	return false
}

// IsHeartbeat reports whether t refreshes a presence entry.
func (t MessageType) IsHeartbeat() bool {
	return t == MsgHeartbeat || t == MsgPresence
}

// IsApplication reports whether application code may send t.
// JOIN, LEAVE, HEARTBEAT and PRESENCE stay internal to the presence layer.
func (t MessageType) IsApplication() bool {
	return t == MsgActivity || t == MsgUpdateStatus || t == MsgSyncState
}

// Message is the envelope of every exchange on a room channel.
// SentAt is milliseconds since epoch, assigned by the sender.
type Message struct {
	Type     MessageType
	SenderID ClientID
	SentAt   int64
	Payload  Payload
}
