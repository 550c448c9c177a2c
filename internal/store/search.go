package store

// SearchMessages performs a full-text search on message bodies. conversationID
// narrows the search to a single conversation when non-empty.
func (db *DB) SearchMessages(query, conversationID string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT m.id, m.conversation_id, m.msg_id, m.sender_id, m.sender_name, m.body,
		       m.message_type, m.outgoing, m.is_group, m.filename, m.file_size, m.file_type,
		       m.share_code, m.download_id, m.download_progress, m.is_downloading, m.timestamp,
		       snippet(messages_fts, 0, '<<', '>>', '...', 32)
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?`

	args := []any{query}
	if conversationID != "" {
		q += " AND m.conversation_id = ?"
		args = append(args, conversationID)
	}
	q += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.Message.ID, &r.Message.ConversationID, &r.Message.MsgID,
			&r.Message.SenderID, &r.Message.SenderName, &r.Message.Body,
			&r.Message.MessageType, &r.Message.Outgoing, &r.Message.IsGroup,
			&r.Message.Filename, &r.Message.FileSize, &r.Message.FileType,
			&r.Message.ShareCode, &r.Message.DownloadID, &r.Message.DownloadProgress,
			&r.Message.IsDownloading, &r.Message.Timestamp, &r.Snippet,
		); err != nil {
			return nil, err
		}
		r.Message.Timestamp = EnsureMillis(r.Message.Timestamp)
		results = append(results, r)
	}
	return results, rows.Err()
}
