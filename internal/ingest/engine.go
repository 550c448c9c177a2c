// Package ingest reconciles backend push events and poll results into the
// durable stores and the UI-facing state container.
package ingest

import (
	"context"
	"fmt"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/bus"
	"github.com/jmendes/peerchat/internal/download"
	"github.com/jmendes/peerchat/internal/pending"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"go.uber.org/zap"
)

// Engine routes backend events into the conversation store, the message log,
// and the download tracker. It subscribes to "backend." events on the bus
// and processes them on a single goroutine, so store operations never race
// each other.
type Engine struct {
	db        *store.DB
	bus       *bus.Bus
	state     *state.Container
	pending   *pending.Tracker
	downloads *download.Tracker
	flusher   *Flusher
	logger    *zap.Logger
	cancel    context.CancelFunc
}

// NewEngine creates an ingestion engine.
func NewEngine(db *store.DB, b *bus.Bus, st *state.Container, p *pending.Tracker, d *download.Tracker, f *Flusher, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:        db,
		bus:       b,
		state:     st,
		pending:   p,
		downloads: d,
		flusher:   f,
		logger:    logger,
	}
}

// Start subscribes to backend events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	sub := e.bus.Subscribe("backend.", 256)

	go func() {
		defer sub.Close()
		for {
			select {
			case evt := <-sub.C():
				e.HandleEvent(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and flushes any buffered appends.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.flusher.Flush()
}

// HandleEvent dispatches one backend event. Exported so tests can drive the
// engine synchronously.
func (e *Engine) HandleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case backend.KindMessage, backend.KindGroupMessage:
		msg, ok := evt.Payload.(backend.MessageEvent)
		if !ok {
			return
		}
		e.handleMessage(msg)
	case backend.KindImageMessage, backend.KindGroupImageMessage:
		msg, ok := evt.Payload.(backend.FileMessageEvent)
		if !ok {
			return
		}
		e.handleFileMessage(msg, store.TypeImage)
	case backend.KindFileMessage, backend.KindGroupFileMessage:
		msg, ok := evt.Payload.(backend.FileMessageEvent)
		if !ok {
			return
		}
		e.handleFileMessage(msg, store.TypeFile)
	case backend.KindDownloadStarted:
		if p, ok := evt.Payload.(backend.DownloadStartedEvent); ok {
			e.downloads.OnStarted(p)
		}
	case backend.KindDownloadProgress:
		if p, ok := evt.Payload.(backend.DownloadProgressEvent); ok {
			e.downloads.OnProgress(p)
		}
	case backend.KindDownloadCompleted:
		if p, ok := evt.Payload.(backend.DownloadCompletedEvent); ok {
			e.downloads.OnCompleted(ctx, p)
		}
	case backend.KindDownloadFailed:
		if p, ok := evt.Payload.(backend.DownloadFailedEvent); ok {
			e.downloads.OnFailed(p)
		}
	}
}

func (e *Engine) handleMessage(evt backend.MessageEvent) {
	// The echo of our own optimistic send: already rendered, discard.
	if e.pending.Consume(evt.MsgID) {
		return
	}

	msg := e.newMessage(evt.MsgID, evt.FromID, evt.FromName, evt.GroupID, evt.Timestamp)
	msg.Body = evt.Content
	msg.MessageType = store.TypeText

	e.ingest(msg, evt.FromName, msg.Body)
}

func (e *Engine) handleFileMessage(evt backend.FileMessageEvent, msgType string) {
	if e.pending.Consume(evt.MsgID) {
		return
	}

	msg := e.newMessage(evt.MsgID, evt.FromID, evt.FromName, evt.GroupID, evt.Timestamp)
	msg.MessageType = msgType
	msg.Filename = evt.Filename
	msg.FileSize = evt.FileSize
	msg.FileType = evt.FileType
	msg.ShareCode = evt.ShareCode
	if evt.DownloadError != "" {
		msg.Body = fmt.Sprintf("Download failed: %s", evt.DownloadError)
	} else {
		msg.Body = AttachmentBody(msgType, evt.Filename, evt.FileSize)
	}

	e.ingest(msg, evt.FromName, msg.Body)
}

func (e *Engine) newMessage(msgID, fromID, fromName, groupID string, ts int64) *store.Message {
	conversationID := fromID
	isGroup := groupID != ""
	if isGroup {
		conversationID = groupID
	}
	// Timestamps are normalized exactly once, here at the ingestion boundary.
	stamp := store.EnsureMillis(ts)
	if msgID == "" {
		msgID = fmt.Sprintf("%s-%d", fromID, stamp)
	}
	return &store.Message{
		ConversationID: conversationID,
		MsgID:          msgID,
		SenderID:       fromID,
		SenderName:     fromName,
		IsGroup:        isGroup,
		Timestamp:      stamp,
	}
}

// ingest applies the active-vs-background routing: the active conversation
// renders in memory without an unread bump, everything else increments
// unread. Either way the durable append goes through the debounced flusher
// and the conversation row is written exactly once.
func (e *Engine) ingest(msg *store.Message, senderName, preview string) {
	convName := ""
	if !msg.IsGroup {
		convName = senderName
	}
	if err := e.db.UpsertConversation(msg.ConversationID, convName, msg.IsGroup); err != nil {
		e.logger.Error("upsert conversation", zap.Error(err), zap.String("conversation", msg.ConversationID))
		return
	}

	active := msg.ConversationID == e.state.ActiveID()
	if active {
		e.state.AppendMessage(*msg)
	}

	if _, err := e.db.UpdateLastMessage(msg.ConversationID, truncate(preview, 100), msg.Timestamp); err != nil {
		e.logger.Error("update last message", zap.Error(err), zap.String("conversation", msg.ConversationID))
	}
	if !active {
		if err := e.db.IncrementUnread(msg.ConversationID); err != nil {
			e.logger.Error("increment unread", zap.Error(err), zap.String("conversation", msg.ConversationID))
		}
	}

	e.flusher.Enqueue(msg)
	e.refreshConversations()
}

func (e *Engine) refreshConversations() {
	convs, err := e.db.ListConversations()
	if err != nil {
		e.logger.Error("list conversations", zap.Error(err))
		return
	}
	e.state.SetConversations(convs)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
