package store

import (
	"slices"
	"sync"
)

// Memory is an in-process store with the same surface as Durable. The
// daemon falls back to it when the database cannot be opened.
type Memory struct {
	mu        sync.RWMutex
	chats     []Chat
	messages  map[string][]Message
	cursor    int64
	sessionID string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{messages: make(map[string][]Message)}
}

func (m *Memory) SaveChats(chats []Chat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = slices.Clone(chats)
}

func (m *Memory) LoadChats() []Chat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.chats)
}

func (m *Memory) SaveMessages(chatID string, msgs []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(msgs) == 0 {
		delete(m.messages, chatID)
		return
	}
	m.messages[chatID] = slices.Clone(msgs)
}

func (m *Memory) LoadAllMessages() map[string][]Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CloneMessages(m.messages)
}

func (m *Memory) LoadCursor() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor
}

func (m *Memory) SaveCursor(ts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = ts
}

func (m *Memory) SessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

func (m *Memory) SetSessionID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = id
}

func (m *Memory) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = nil
	m.messages = make(map[string][]Message)
	m.sessionID = ""
}
