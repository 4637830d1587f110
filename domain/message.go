// Package domain contains core concepts of the chat relay.
// Records are immutable after construction; the router assigns their
// wall-clock timestamp at the moment they are built.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates wire records.
type MessageType string

const (
	TypeWelcome   MessageType = "WELCOME"
	TypeUserList  MessageType = "USER_LIST"
	TypeUserJoin  MessageType = "USER_JOIN"
	TypeUserLeave MessageType = "USER_LEAVE"
	TypeChat      MessageType = "CHAT_MESSAGE"
	TypePrivate   MessageType = "PRIVATE"
	TypeSystem    MessageType = "SYSTEM"
	TypeError     MessageType = "ERROR"
)

// ServerSender labels records emitted by the relay itself.
const ServerSender = "SERVER"

// TimestampLayout is the wall-clock format carried on the wire
// (24-hour, zero-padded, server-local time).
const TimestampLayout = "15:04:05"

// Message represents one immutable wire record.
type Message struct {
	ID        uuid.UUID
	Type      MessageType
	Sender    string
	Content   string
	Timestamp time.Time
}

func NewMessage(t MessageType, sender, content string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		Type:      t,
		Sender:    sender,
		Content:   content,
		Timestamp: at,
	}
}

// FormatUserList renders the USER_LIST payload sent to peers.
func FormatUserList(names []string) string {
	return "Online users: " + strings.Join(names, ", ")
}
