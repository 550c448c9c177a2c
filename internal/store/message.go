package store

import (
	"database/sql"
	"fmt"
	"time"
)

const appendMessageSQL = `
	INSERT INTO messages (conversation_id, msg_id, sender_id, sender_name, body,
		message_type, outgoing, is_group, filename, file_size, file_type,
		share_code, download_id, download_progress, is_downloading, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
		sender_name = excluded.sender_name,
		body = excluded.body,
		download_id = excluded.download_id,
		download_progress = excluded.download_progress,
		is_downloading = excluded.is_downloading`

// AppendMessage stores a message (idempotent on conversation_id + msg_id, so
// a poll re-delivering a pushed message cannot duplicate it).
func (db *DB) AppendMessage(m *Message) error {
	_, err := db.Exec(appendMessageSQL, appendArgs(m)...)
	return err
}

// AppendMessageBatch stores a batch of messages in one transaction. The
// debounced flusher uses this to coalesce rapid appends into a single write.
func (db *DB) AppendMessageBatch(msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range msgs {
		if _, err := tx.Exec(appendMessageSQL, appendArgs(m)...); err != nil {
			return fmt.Errorf("append message %s: %w", m.MsgID, err)
		}
	}
	return tx.Commit()
}

func appendArgs(m *Message) []any {
	return []any{
		m.ConversationID, m.MsgID, m.SenderID, m.SenderName, m.Body,
		m.MessageType, m.Outgoing, m.IsGroup, m.Filename, m.FileSize, m.FileType,
		m.ShareCode, m.DownloadID, m.DownloadProgress, m.IsDownloading,
		m.Timestamp, time.Now().UnixMilli(),
	}
}

// ListMessages returns a page of a conversation's log in newest-last order.
// offset counts back from the newest message. Timestamps read from persisted
// history are normalized to milliseconds on the way out.
func (db *DB) ListMessages(conversationID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, conversation_id, msg_id, sender_id, sender_name, body,
			message_type, outgoing, is_group, filename, file_size, file_type,
			share_code, download_id, download_progress, is_downloading, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		m.Timestamp = EnsureMillis(m.Timestamp)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into newest-last order; ties keep insertion order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ClearMessages deletes a conversation's entire message log.
func (db *DB) ClearMessages(conversationID string) error {
	_, err := db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	return err
}

// UpdateDownloadState mutates a message's displayed download state in place.
func (db *DB) UpdateDownloadState(conversationID, msgID, body, messageType string, progress int, downloading bool) error {
	_, err := db.Exec(`
		UPDATE messages
		SET body = ?, message_type = ?, download_progress = ?, is_downloading = ?
		WHERE conversation_id = ? AND msg_id = ?`,
		body, messageType, progress, downloading, conversationID, msgID)
	return err
}

// SetMessageDownloadID records the backend download id on a message so the
// tracker mapping survives a restart.
func (db *DB) SetMessageDownloadID(conversationID, msgID, downloadID string) error {
	_, err := db.Exec(`
		UPDATE messages SET download_id = ? WHERE conversation_id = ? AND msg_id = ?`,
		downloadID, conversationID, msgID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(r rowScanner, m *Message) error {
	return r.Scan(
		&m.ID, &m.ConversationID, &m.MsgID, &m.SenderID, &m.SenderName, &m.Body,
		&m.MessageType, &m.Outgoing, &m.IsGroup, &m.Filename, &m.FileSize, &m.FileType,
		&m.ShareCode, &m.DownloadID, &m.DownloadProgress, &m.IsDownloading, &m.Timestamp,
	)
}

var _ rowScanner = (*sql.Rows)(nil)
