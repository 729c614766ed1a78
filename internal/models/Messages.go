package models

import (
	"time"
)

type MessageType string

const (
	TypeChat   MessageType = "CHAT"
	TypeJoin   MessageType = "JOIN"
	TypeLeave  MessageType = "LEAVE"
	TypeSystem MessageType = "SYSTEM"
)

type Message struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Sender    string      `json:"sender"`
	RoomID    string      `json:"roomId"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	// SenderServerID lets a pub/sub subscriber drop messages this instance
	// published itself and already delivered locally. It stays on the store
	// and bus payloads only; ForWire strips it before anything reaches a
	// client.
	SenderServerID string `json:"sender_server_id,omitempty"`
}

// ForWire returns a copy safe to hand to clients, with internal routing
// fields cleared.
func (m *Message) ForWire() *Message {
	out := *m
	out.SenderServerID = ""
	return &out
}
