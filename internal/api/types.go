package api

import (
	"github.com/matheus3301/hookchat/internal/status"
	"github.com/matheus3301/hookchat/internal/store"
)

// Request and response documents of the ChatService. They travel as
// google.protobuf.Struct values carrying their JSON form.

type Empty struct{}

type StatusResponse struct {
	Profile      string `json:"profile"`
	SessionID    string `json:"sessionId"`
	Polling      bool   `json:"polling"`
	Cursor       int64  `json:"cursor"`
	ChatCount    int    `json:"chatCount"`
	MessageCount int    `json:"messageCount"`
	UptimeMs     int64  `json:"uptimeMs"`
	StoreMode    string `json:"storeMode"`
	SendURL      string `json:"sendUrl"`
	PollURL      string `json:"pollUrl"`
	// Rows in the SQLite store; zero on the memory store.
	StoredChats    int64 `json:"storedChats,omitempty"`
	StoredMessages int64 `json:"storedMessages,omitempty"`
}

type ChatRef struct {
	ChatID string `json:"chatId"`
}

type ChatList struct {
	Chats []store.Chat `json:"chats"`
}

type ChatResponse struct {
	Chat store.Chat `json:"chat"`
}

type CreateChatRequest struct {
	Name   string     `json:"name"`
	Kind   store.Kind `json:"kind,omitempty"`
	Avatar string     `json:"avatar,omitempty"`
	Online bool       `json:"online,omitempty"`
}

type MessageList struct {
	Messages []store.Message `json:"messages"`
}

type SendTextRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

type SendTextResponse struct {
	Message store.Message `json:"message"`
}

type UpdateStatusRequest struct {
	ChatID    string        `json:"chatId"`
	MessageID string        `json:"messageId"`
	Status    status.Status `json:"status"`
}

type WatchRequest struct {
	// Namespace filters events by kind prefix; empty means all.
	Namespace string `json:"namespace,omitempty"`
}

// Event is a hub event as streamed by WatchEvents. Exactly one of the
// payload fields is set, depending on Kind.
type Event struct {
	Kind      string         `json:"kind"`
	Timestamp int64          `json:"timestamp"`
	Chat      *store.Chat    `json:"chat,omitempty"`
	Message   *store.Message `json:"message,omitempty"`
	Change    *status.Change `json:"change,omitempty"`
}
