package store

import (
	"database/sql"
	"strconv"
	"time"
)

const (
	keySessionID  = "session_id"
	keyPollCursor = "poll_cursor"
)

// SetState upserts a sync_state value.
func (db *DB) SetState(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetState retrieves a sync_state value. Missing keys return "" and no error.
func (db *DB) GetState(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SessionID returns the persisted per-profile session identifier.
func (db *DB) SessionID() (string, error) {
	return db.GetState(keySessionID)
}

// SetSessionID persists the session identifier.
func (db *DB) SetSessionID(id string) error {
	return db.SetState(keySessionID, id)
}

// PollCursor returns the last-seen inbound timestamp, 0 if never set.
func (db *DB) PollCursor() (int64, error) {
	v, err := db.GetState(keyPollCursor)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// SetPollCursor persists the last-seen inbound timestamp.
func (db *DB) SetPollCursor(ts int64) error {
	return db.SetState(keyPollCursor, strconv.FormatInt(ts, 10))
}
