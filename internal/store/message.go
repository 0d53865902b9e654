package store

import (
	"fmt"
	"time"

	"github.com/matheus3301/hookchat/internal/status"
)

// SaveMessages replaces the stored sequence for chatID. An empty sequence
// deletes every message of the chat.
func (db *DB) SaveMessages(chatID string, msgs []Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	now := time.Now().UnixMilli()
	for i, m := range msgs {
		if _, err := tx.Exec(`
			INSERT INTO messages (chat_id, msg_id, seq, sender, text, timestamp, direction, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chat_id, msg_id) DO UPDATE SET
				seq = excluded.seq,
				text = excluded.text,
				status = excluded.status`,
			chatID, m.ID, i, m.From, m.Text, m.Timestamp, string(m.Direction), string(m.Status), now); err != nil {
			return fmt.Errorf("insert message %q: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// LoadAllMessages returns every stored sequence keyed by chat id.
func (db *DB) LoadAllMessages() (map[string][]Message, error) {
	rows, err := db.Query(`
		SELECT chat_id, msg_id, sender, text, timestamp, direction, status
		FROM messages
		ORDER BY chat_id ASC, seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	all := make(map[string][]Message)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		all[m.ChatID] = append(all[m.ChatID], m)
	}
	return all, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (Message, error) {
	var m Message
	var direction, st string
	if err := row.Scan(&m.ChatID, &m.ID, &m.From, &m.Text, &m.Timestamp, &direction, &st); err != nil {
		return Message{}, err
	}
	m.Direction = Direction(direction)
	m.Status = status.Status(st)
	return m, nil
}
