// Package app exposes the imperative UI boundary over the sync engine and
// composes the process via fx.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/download"
	"github.com/jmendes/peerchat/internal/ingest"
	"github.com/jmendes/peerchat/internal/pending"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/jmendes/peerchat/internal/thumb"
	"go.uber.org/zap"
)

// App implements the operations the UI invokes. Reads go through the state
// container; writes go through the stores and trackers, never around them.
type App struct {
	db        *store.DB
	client    backend.Client
	state     *state.Container
	pending   *pending.Tracker
	downloads *download.Tracker
	flusher   *ingest.Flusher
	thumbs    *thumb.Cache
	logger    *zap.Logger
}

// New creates the app facade.
func New(db *store.DB, client backend.Client, st *state.Container, p *pending.Tracker, d *download.Tracker, f *ingest.Flusher, thumbs *thumb.Cache, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		db:        db,
		client:    client,
		state:     st,
		pending:   p,
		downloads: d,
		flusher:   f,
		thumbs:    thumbs,
		logger:    logger,
	}
}

// State returns the read model the UI renders from.
func (a *App) State() *state.Container {
	return a.state
}

// OpenChat makes a conversation active: loads its newest page, resets unread
// once, and drops thumbnails cached for the previous room.
func (a *App) OpenChat(_ context.Context, id string) error {
	if prev := a.state.ActiveID(); prev != "" && prev != id {
		a.thumbs.Clear()
	}

	// Pending appends must be durable before the page load reads the log.
	a.flusher.Flush()

	msgs, err := a.db.ListMessages(id, state.RenderCap, 0)
	if err != nil {
		// Corrupt history renders as empty rather than blocking the chat.
		a.logger.Error("load history", zap.Error(err), zap.String("conversation", id))
		msgs = nil
	}
	a.state.SetActive(id, msgs)

	if err := a.db.MarkRead(id); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	a.refreshConversations()
	return nil
}

// CloseChat leaves the active conversation.
func (a *App) CloseChat() {
	a.state.ClearActive()
	a.thumbs.Clear()
}

// SendMessage optimistically renders a text message in the active
// conversation, then hands it to the backend. A failed send rolls the
// message back and surfaces the error; the user can retry manually.
func (a *App) SendMessage(ctx context.Context, content string) error {
	conversationID := a.state.ActiveID()
	if conversationID == "" {
		return fmt.Errorf("no active conversation")
	}
	conv, err := a.db.GetConversation(conversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	isGroup := conv != nil && conv.IsGroup

	id := pending.NewID()
	a.pending.Track(id)
	msg := store.Message{
		ConversationID: conversationID,
		MsgID:          id,
		Body:           content,
		MessageType:    store.TypeText,
		Outgoing:       true,
		IsGroup:        isGroup,
		Timestamp:      time.Now().UnixMilli(),
	}
	a.state.AppendMessage(msg)

	if isGroup {
		err = a.client.SendGroup(ctx, conversationID, id, content)
	} else {
		err = a.client.SendDirect(ctx, conversationID, id, content)
	}
	if err != nil {
		// The active conversation may have changed while the send was in
		// flight; RemoveMessage is a no-op then, which is fine.
		a.state.RemoveMessage(id)
		a.pending.Forget(id)
		sendErr := fmt.Errorf("send message: %w", err)
		a.state.SetError(sendErr)
		return sendErr
	}

	a.flusher.Enqueue(&msg)
	if _, err := a.db.UpdateLastMessage(conversationID, content, msg.Timestamp); err != nil {
		a.logger.Error("update last message", zap.Error(err), zap.String("conversation", conversationID))
	}
	a.refreshConversations()
	return nil
}

// SendAttachment shares a local file into the active conversation, renders
// its placeholder message, and returns the share code.
func (a *App) SendAttachment(ctx context.Context, path string) (string, error) {
	conversationID := a.state.ActiveID()
	if conversationID == "" {
		return "", fmt.Errorf("no active conversation")
	}

	shareCode, err := a.client.ShareFile(ctx, conversationID, path)
	if err != nil {
		shareErr := fmt.Errorf("share file: %w", err)
		a.state.SetError(shareErr)
		return "", shareErr
	}

	filename := filepath.Base(path)
	msgType := download.Classify(filename, nil)
	id := pending.NewID()
	a.pending.Track(id)
	msg := store.Message{
		ConversationID: conversationID,
		MsgID:          id,
		Body:           ingest.AttachmentBody(msgType, filename, 0),
		MessageType:    msgType,
		Outgoing:       true,
		Filename:       filename,
		ShareCode:      shareCode,
		Timestamp:      time.Now().UnixMilli(),
	}
	a.state.AppendMessage(msg)
	a.flusher.Enqueue(&msg)
	if _, err := a.db.UpdateLastMessage(conversationID, msg.Body, msg.Timestamp); err != nil {
		a.logger.Error("update last message", zap.Error(err), zap.String("conversation", conversationID))
	}
	a.refreshConversations()
	return shareCode, nil
}

// ClearChat deletes a conversation and its history.
func (a *App) ClearChat(_ context.Context, id string) error {
	if err := a.db.DeleteConversation(id); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	if a.state.ActiveID() == id {
		a.CloseChat()
	}
	a.refreshConversations()
	return nil
}

// RequestDownload asks the backend to download a shared file and maps the
// resulting download id onto the message.
func (a *App) RequestDownload(ctx context.Context, msgID, shareCode, filename string) error {
	conversationID := a.state.ActiveID()
	if conversationID == "" {
		return fmt.Errorf("no active conversation")
	}

	downloadID, err := a.client.RequestDownload(ctx, shareCode, filename)
	if err != nil {
		reqErr := fmt.Errorf("request download: %w", err)
		a.state.SetError(reqErr)
		return reqErr
	}

	a.downloads.Register(downloadID, conversationID, msgID, filename)
	a.state.UpdateMessage(msgID, func(m *store.Message) {
		m.DownloadID = downloadID
		m.IsDownloading = true
	})
	return nil
}

// CancelDownload aborts an in-flight download by id.
func (a *App) CancelDownload(ctx context.Context, downloadID string) error {
	return a.downloads.Cancel(ctx, downloadID)
}

// Search runs a full-text query over message history, optionally scoped to
// one conversation.
func (a *App) Search(query, conversationID string, limit int) ([]store.SearchResult, error) {
	a.flusher.Flush()
	return a.db.SearchMessages(query, conversationID, limit)
}

// JoinGroup joins a group chat by invite code.
func (a *App) JoinGroup(ctx context.Context, code string) error {
	if err := a.client.JoinGroup(ctx, code); err != nil {
		return fmt.Errorf("join group: %w", err)
	}
	return nil
}

// Thumbnail returns a displayable preview for a file path or share code,
// fetching and decoding on first use. Full-resolution bytes never enter the
// cache.
func (a *App) Thumbnail(ctx context.Context, key string) (string, error) {
	if preview, ok := a.thumbs.Get(key); ok {
		return preview, nil
	}
	data, err := a.client.FetchThumbnail(ctx, key)
	if err != nil {
		return "", fmt.Errorf("fetch thumbnail: %w", err)
	}
	preview, err := thumb.Preview(data)
	if err != nil {
		return "", err
	}
	a.thumbs.Put(key, preview)
	return preview, nil
}

func (a *App) refreshConversations() {
	convs, err := a.db.ListConversations()
	if err != nil {
		a.logger.Error("list conversations", zap.Error(err))
		return
	}
	a.state.SetConversations(convs)
}
