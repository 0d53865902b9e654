package store

import (
	"fmt"
	"time"
)

// SaveChats replaces the durable chat list with chats, preserving order.
// Chats absent from the list are removed; their messages are not touched.
func (db *DB) SaveChats(chats []Chat) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM chats`); err != nil {
		return fmt.Errorf("clear chats: %w", err)
	}

	now := time.Now().UnixMilli()
	for i, c := range chats {
		if _, err := tx.Exec(`
			INSERT INTO chats (id, name, avatar_ref, last_message_text, last_message_at, unread_count, online, kind, position, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.AvatarRef, c.LastMessageText, c.LastMessageAt, c.UnreadCount, c.Online, string(c.Kind), i, now); err != nil {
			return fmt.Errorf("insert chat %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// LoadChats returns the chat list in saved order.
func (db *DB) LoadChats() ([]Chat, error) {
	rows, err := db.Query(`
		SELECT id, name, avatar_ref, last_message_text, last_message_at, unread_count, online, kind
		FROM chats
		ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &c.AvatarRef, &c.LastMessageText, &c.LastMessageAt, &c.UnreadCount, &c.Online, &kind); err != nil {
			return nil, err
		}
		c.Kind = Kind(kind)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
