package store

import (
	"go.uber.org/zap"
)

// Durable is the persistence facade used by the synchronizer. It never
// returns errors: failures are logged and reads degrade to empty values,
// so losing persistence does not break a running session.
type Durable struct {
	db     *DB
	logger *zap.Logger
}

// NewDurable wraps db. A nil logger discards persistence failures.
func NewDurable(db *DB, logger *zap.Logger) *Durable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Durable{db: db, logger: logger.Named("store")}
}

// SaveChats persists the chat list.
func (d *Durable) SaveChats(chats []Chat) {
	if err := d.db.SaveChats(chats); err != nil {
		d.fail("save chats", err, zap.Int("count", len(chats)))
	}
}

// LoadChats returns the persisted chat list, or nil on failure.
func (d *Durable) LoadChats() []Chat {
	chats, err := d.db.LoadChats()
	if err != nil {
		d.fail("load chats", err)
		return nil
	}
	return chats
}

// SaveMessages persists the message sequence of one chat.
func (d *Durable) SaveMessages(chatID string, msgs []Message) {
	if err := d.db.SaveMessages(chatID, msgs); err != nil {
		d.fail("save messages", err, zap.String("chat_id", chatID), zap.Int("count", len(msgs)))
	}
}

// LoadAllMessages returns every persisted sequence, or an empty map on failure.
func (d *Durable) LoadAllMessages() map[string][]Message {
	all, err := d.db.LoadAllMessages()
	if err != nil {
		d.fail("load messages", err)
		return map[string][]Message{}
	}
	return all
}

// LoadCursor returns the persisted poll cursor, or 0 on failure.
func (d *Durable) LoadCursor() int64 {
	ts, err := d.db.PollCursor()
	if err != nil {
		d.fail("load cursor", err)
		return 0
	}
	return ts
}

// SaveCursor persists the poll cursor.
func (d *Durable) SaveCursor(ts int64) {
	if err := d.db.SetPollCursor(ts); err != nil {
		d.fail("save cursor", err, zap.Int64("cursor", ts))
	}
}

// SessionID returns the persisted session identifier, or "" on failure.
func (d *Durable) SessionID() string {
	id, err := d.db.SessionID()
	if err != nil {
		d.fail("load session id", err)
		return ""
	}
	return id
}

// SetSessionID persists the session identifier.
func (d *Durable) SetSessionID(id string) {
	if err := d.db.SetSessionID(id); err != nil {
		d.fail("save session id", err)
	}
}

// ClearAll removes all persisted chats, messages and the session identifier.
func (d *Durable) ClearAll() {
	if err := d.db.ClearAll(); err != nil {
		d.fail("clear", err)
	}
}

func (d *Durable) fail(op string, err error, fields ...zap.Field) {
	d.logger.Error("persistence failure", append([]zap.Field{zap.String("op", op), zap.Error(err)}, fields...)...)
}
