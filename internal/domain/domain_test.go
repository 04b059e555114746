package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageType_Classes(t *testing.T) {
	tests := []struct {
		typ         MessageType
		heartbeat   bool
		application bool
	}{
		{MsgJoin, false, false},
		{MsgLeave, false, false},
		{MsgUpdateStatus, false, true},
		{MsgActivity, false, true},
		{MsgSyncState, false, true},
		{MsgHeartbeat, true, false},
		{MsgPresence, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.True(t, tt.typ.Valid())
			assert.Equal(t, tt.heartbeat, tt.typ.IsHeartbeat())
			assert.Equal(t, tt.application, tt.typ.IsApplication())
		})
	}
	assert.False(t, MessageType("PING").Valid())
	assert.Len(t, MessageTypes, 7)
}

func TestPayload_Types(t *testing.T) {
	assert.Equal(t, MsgActivity, ActivityPayload{}.MessageType())
	assert.Equal(t, MsgUpdateStatus, StatusPayload{}.MessageType())
	assert.Equal(t, MsgSyncState, SyncStatePayload{}.MessageType())
	assert.True(t, StatusBusy.Valid())
	assert.False(t, Status("asleep").Valid())
}

func TestNewRoomName(t *testing.T) {
	_, err := NewRoomName("")
	assert.ErrorIs(t, err, ErrRoomNameEmpty)

	_, err = NewRoomName(strings.Repeat("r", MaxRoomNameLen+1))
	assert.ErrorIs(t, err, ErrRoomNameTooLong)

	name, err := NewRoomName("lobby")
	assert.NoError(t, err)
	assert.Equal(t, RoomName("lobby"), name)
}
