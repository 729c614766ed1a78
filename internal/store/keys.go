package store

import "strings"

// Key layout, shared with other deployments pointing at the same store:
//
//	room:<id>           hash   room metadata
//	room:<id>:messages  list   bounded message log
//	room:<id>:users     set    active display names
//	chat:room:<id>      chan   cross-instance fan-out
const (
	roomKeyPrefix = "room:"
	chanPrefix    = "chat:room:"

	messagesSuffix = ":messages"
	usersSuffix    = ":users"
)

func RoomKey(roomID string) string {
	return roomKeyPrefix + roomID
}

func RoomMessagesKey(roomID string) string {
	return roomKeyPrefix + roomID + messagesSuffix
}

func RoomUsersKey(roomID string) string {
	return roomKeyPrefix + roomID + usersSuffix
}

func RoomChannel(roomID string) string {
	return chanPrefix + roomID
}

// RoomKeyPattern matches every key in the room namespace, metadata and
// auxiliary keys alike.
func RoomKeyPattern() string {
	return roomKeyPrefix + "*"
}

// RoomChannelPattern matches the fan-out channel of every room.
func RoomChannelPattern() string {
	return chanPrefix + "*"
}

// RoomIDFromKey extracts the room id from a metadata key. It reports false
// for auxiliary keys (message logs, member sets) sharing the namespace.
func RoomIDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, roomKeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, roomKeyPrefix)
	if strings.HasSuffix(id, messagesSuffix) || strings.HasSuffix(id, usersSuffix) {
		return "", false
	}
	return id, true
}
