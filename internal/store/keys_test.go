package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomIDFromKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{"room:abc", "abc", true},
		{"room:abc:messages", "", false},
		{"room:abc:users", "", false},
		{"chat:room:abc", "", false},
		{"unrelated", "", false},
	}

	for _, tt := range tests {
		id, ok := RoomIDFromKey(tt.key)
		assert.Equal(t, tt.wantOK, ok, tt.key)
		assert.Equal(t, tt.wantID, id, tt.key)
	}
}

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "room:42", RoomKey("42"))
	assert.Equal(t, "room:42:messages", RoomMessagesKey("42"))
	assert.Equal(t, "room:42:users", RoomUsersKey("42"))
	assert.Equal(t, "chat:room:42", RoomChannel("42"))
}
