package store

import (
	"slices"

	"github.com/matheus3301/hookchat/internal/status"
)

// Kind classifies a chat.
type Kind string

const (
	KindIndividual Kind = "individual"
	KindGroup      Kind = "group"
	KindBot        Kind = "bot"
)

// Valid reports whether k is a known chat kind.
func (k Kind) Valid() bool {
	return k == KindIndividual || k == KindGroup || k == KindBot
}

// Direction tells whether a message was composed locally or received.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
)

// Chat represents one conversation in the chat list.
type Chat struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AvatarRef       string `json:"avatar,omitempty"`
	LastMessageText string `json:"lastMessage"`
	LastMessageAt   int64  `json:"timestamp"`
	UnreadCount     int    `json:"unread"`
	Online          bool   `json:"online"`
	Kind            Kind   `json:"kind"`
}

// Message represents one entry of a chat's message sequence.
type Message struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chatId"`
	Text      string        `json:"text"`
	Timestamp int64         `json:"timestamp"`
	Direction Direction     `json:"direction"`
	Status    status.Status `json:"status"`
	From      string        `json:"from,omitempty"`
}

// CloneMessages returns a deep copy of a message map.
func CloneMessages(in map[string][]Message) map[string][]Message {
	out := make(map[string][]Message, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
