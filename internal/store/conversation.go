package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertConversation creates a conversation or refreshes its identity fields.
// Unread count and last-message fields are never touched here; those belong
// to IncrementUnread/MarkRead and UpdateLastMessage.
func (db *DB) UpsertConversation(id, name string, isGroup bool) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (id, name, is_group, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE conversations.name END,
			is_group = excluded.is_group,
			updated_at = excluded.updated_at`,
		id, name, isGroup, now)
	return err
}

// UpdateLastMessage sets the conversation's last-message preview using
// max-timestamp-wins: a strictly older incoming timestamp leaves the stored
// fields untouched. The returned bool reports whether the update applied,
// so callers see the no-op explicitly.
func (db *DB) UpdateLastMessage(id, preview string, tsMillis int64) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE conversations
		SET last_message = ?, last_message_at = ?, updated_at = ?
		WHERE id = ? AND (last_message_at IS NULL OR last_message_at <= ?)`,
		preview, tsMillis, now, id, tsMillis)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// IncrementUnread bumps the unread counter by one.
func (db *DB) IncrementUnread(id string) error {
	_, err := db.Exec(`
		UPDATE conversations SET unread_count = unread_count + 1, updated_at = ?
		WHERE id = ?`, time.Now().UnixMilli(), id)
	return err
}

// MarkRead resets the unread counter to zero. Idempotent: the reset is a
// single last-writer-wins statement, never a read-modify-write.
func (db *DB) MarkRead(id string) error {
	_, err := db.Exec(`
		UPDATE conversations SET unread_count = 0, updated_at = ?
		WHERE id = ?`, time.Now().UnixMilli(), id)
	return err
}

// DeleteConversation removes a conversation and its entire message log.
func (db *DB) DeleteConversation(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return tx.Commit()
}

// ListConversations returns all conversations sorted by recency.
func (db *DB) ListConversations() ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, name, is_group, unread_count,
			COALESCE(last_message, ''), COALESCE(last_message_at, 0)
		FROM conversations
		ORDER BY last_message_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastMessage, &c.LastMessageAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns a single conversation by id, or nil if absent.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, name, is_group, unread_count,
			COALESCE(last_message, ''), COALESCE(last_message_at, 0)
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastMessage, &c.LastMessageAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
