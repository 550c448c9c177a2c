// Package download tracks backend file downloads and mirrors their lifecycle
// into the affected message's displayed state.
package download

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/jmendes/peerchat/internal/thumb"
	"go.uber.org/zap"
)

// State is a download task's lifecycle state.
type State string

const (
	Started     State = "STARTED"
	Downloading State = "DOWNLOADING"
	Completed   State = "COMPLETED"
	Failed      State = "FAILED"
)

// validTransitions defines allowed task state transitions. Completed and
// Failed are terminal; the task is deleted once its UI update is applied.
var validTransitions = map[State][]State{
	Started:     {Downloading, Completed, Failed},
	Downloading: {Downloading, Completed, Failed},
}

// Task maps a backend download id to the message it updates.
type Task struct {
	DownloadID     string
	ConversationID string
	MsgID          string
	Filename       string
	State          State
	Progress       int
}

// Tracker owns the download_id → message mapping and applies lifecycle
// updates to the store and the state container. A failure here only affects
// the one message's displayed state, never the process.
type Tracker struct {
	db     *store.DB
	client backend.Client
	state  *state.Container
	thumbs *thumb.Cache
	logger *zap.Logger

	// mu guards tasks: lifecycle events arrive on the engine goroutine while
	// Register and Cancel come from UI actions.
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewTracker creates a download tracker.
func NewTracker(db *store.DB, client backend.Client, st *state.Container, thumbs *thumb.Cache, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		db:     db,
		client: client,
		state:  st,
		thumbs: thumbs,
		logger: logger,
		tasks:  make(map[string]*Task),
	}
}

// Register establishes the mapping before lifecycle events arrive: either an
// outbound attachment placeholder or an inbound message whose download the
// user requested.
func (t *Tracker) Register(downloadID, conversationID, msgID, filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[downloadID] = &Task{
		DownloadID:     downloadID,
		ConversationID: conversationID,
		MsgID:          msgID,
		Filename:       filename,
		State:          Started,
	}
	if err := t.db.SetMessageDownloadID(conversationID, msgID, downloadID); err != nil {
		t.logger.Warn("persist download id", zap.Error(err), zap.String("download_id", downloadID))
	}
}

// Task returns a copy of the tracked task for a download id.
func (t *Tracker) Task(downloadID string) (Task, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[downloadID]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// OnStarted handles a download-started event. When no mapping exists the
// download was initiated by the remote side: a placeholder message is minted
// in the active conversation.
func (t *Tracker) OnStarted(evt backend.DownloadStartedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[evt.DownloadID]; ok {
		if evt.Filename != "" {
			task.Filename = evt.Filename
		}
		t.applyMessage(task, downloadingBody(task.Filename, 0), store.TypeFile, 0, true)
		return
	}

	active := t.state.ActiveID()
	if active == "" {
		t.logger.Warn("download started with no mapping and no active conversation",
			zap.String("download_id", evt.DownloadID))
		return
	}

	msg := &store.Message{
		ConversationID: active,
		MsgID:          fmt.Sprintf("dl-%s", evt.DownloadID),
		Body:           downloadingBody(evt.Filename, 0),
		MessageType:    store.TypeFile,
		Filename:       evt.Filename,
		DownloadID:     evt.DownloadID,
		IsDownloading:  true,
		Timestamp:      store.EnsureMillis(evt.Timestamp),
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	if err := t.db.AppendMessage(msg); err != nil {
		t.logger.Error("persist download placeholder", zap.Error(err), zap.String("download_id", evt.DownloadID))
	}
	t.state.AppendMessage(*msg)
	t.tasks[evt.DownloadID] = &Task{
		DownloadID:     evt.DownloadID,
		ConversationID: active,
		MsgID:          msg.MsgID,
		Filename:       evt.Filename,
		State:          Started,
	}
}

// OnProgress handles a progress event. A missing mapping is recovered by
// scanning the active message list for a stored download id, which covers
// the race where progress is observed before started is processed.
func (t *Tracker) OnProgress(evt backend.DownloadProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[evt.DownloadID]
	if !ok {
		m, found := t.state.MessageByDownloadID(evt.DownloadID)
		if !found {
			t.logger.Warn("progress for unknown download", zap.String("download_id", evt.DownloadID))
			return
		}
		task = &Task{
			DownloadID:     evt.DownloadID,
			ConversationID: m.ConversationID,
			MsgID:          m.MsgID,
			Filename:       m.Filename,
			State:          Started,
		}
		t.tasks[evt.DownloadID] = task
	}

	if !t.transition(task, Downloading) {
		return
	}
	task.Progress = clampProgress(evt.Progress)
	t.applyMessage(task, downloadingBody(task.Filename, task.Progress), store.TypeFile, task.Progress, true)
}

// OnCompleted fetches the finished file, classifies it, writes the terminal
// message state, and drops the mapping.
func (t *Tracker) OnCompleted(ctx context.Context, evt backend.DownloadCompletedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[evt.DownloadID]
	if !ok {
		t.logger.Warn("completion for unknown download", zap.String("download_id", evt.DownloadID))
		return
	}
	if !t.transition(task, Completed) {
		return
	}
	defer delete(t.tasks, evt.DownloadID)

	filename := evt.Filename
	if filename == "" {
		filename = task.Filename
	}

	data, err := t.client.FetchFile(ctx, evt.Path)
	if err != nil {
		// Classification falls back to the extension; the download itself
		// already succeeded.
		t.logger.Warn("fetch completed file", zap.Error(err), zap.String("download_id", evt.DownloadID))
	}

	msgType := Classify(filename, data)
	body := "File: " + filename
	if msgType == store.TypeImage {
		body = "Image: " + filename
		if preview, perr := thumb.Preview(data); perr == nil {
			t.thumbs.Put(evt.Path, preview)
		}
	}
	t.applyMessage(task, body, msgType, 100, false)
}

// OnFailed writes the error state into the message and drops the mapping.
func (t *Tracker) OnFailed(evt backend.DownloadFailedEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[evt.DownloadID]
	if !ok {
		t.logger.Warn("failure for unknown download", zap.String("download_id", evt.DownloadID))
		return
	}
	if !t.transition(task, Failed) {
		return
	}
	delete(t.tasks, evt.DownloadID)

	body := fmt.Sprintf("Download failed: %s", evt.Error)
	t.applyMessage(task, body, store.TypeFile, 0, false)
}

// Cancel aborts an in-flight download and removes its mapping.
func (t *Tracker) Cancel(ctx context.Context, downloadID string) error {
	t.mu.Lock()
	delete(t.tasks, downloadID)
	t.mu.Unlock()
	if err := t.client.CancelDownload(ctx, downloadID); err != nil {
		return fmt.Errorf("cancel download %s: %w", downloadID, err)
	}
	return nil
}

func (t *Tracker) transition(task *Task, to State) bool {
	if !slices.Contains(validTransitions[task.State], to) {
		t.logger.Warn("invalid download transition",
			zap.String("download_id", task.DownloadID),
			zap.String("from", string(task.State)),
			zap.String("to", string(to)))
		return false
	}
	task.State = to
	return true
}

// applyMessage writes the displayed state to the durable log and, when the
// conversation is on screen, to the in-memory list.
func (t *Tracker) applyMessage(task *Task, body, msgType string, progress int, downloading bool) {
	if err := t.db.UpdateDownloadState(task.ConversationID, task.MsgID, body, msgType, progress, downloading); err != nil {
		t.logger.Error("persist download state", zap.Error(err), zap.String("msg_id", task.MsgID))
	}
	t.state.UpdateMessage(task.MsgID, func(m *store.Message) {
		m.Body = body
		m.MessageType = msgType
		m.DownloadProgress = progress
		m.IsDownloading = downloading
	})
}

func downloadingBody(filename string, progress int) string {
	if filename == "" {
		filename = "file"
	}
	return fmt.Sprintf("Downloading %s... %d%%", filename, progress)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

// Classify decides image vs generic file, preferring magic bytes over the
// filename extension.
func Classify(filename string, data []byte) string {
	if len(data) > 0 {
		if thumb.IsImageData(data) {
			return store.TypeImage
		}
		return store.TypeFile
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if slices.Contains(imageExts, ext) {
		return store.TypeImage
	}
	return store.TypeFile
}
