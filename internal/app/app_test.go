package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/download"
	"github.com/jmendes/peerchat/internal/ingest"
	"github.com/jmendes/peerchat/internal/pending"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/jmendes/peerchat/internal/thumb"
)

type fakeClient struct {
	backend.Client

	sendErr    error
	sent       []string
	thumbCalls int
	thumbData  []byte
}

func (f *fakeClient) SendDirect(_ context.Context, peerID, msgID, content string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msgID)
	return nil
}

func (f *fakeClient) SendGroup(_ context.Context, groupID, msgID, content string) error {
	return f.SendDirect(nil, groupID, msgID, content)
}

func (f *fakeClient) ShareFile(_ context.Context, _, _ string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "share-1", nil
}

func (f *fakeClient) RequestDownload(_ context.Context, _, _ string) (string, error) {
	return "dl-1", nil
}

func (f *fakeClient) FetchThumbnail(_ context.Context, _ string) ([]byte, error) {
	f.thumbCalls++
	return f.thumbData, nil
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newApp(t *testing.T, client *fakeClient) (*App, *store.DB, *state.Container, *pending.Tracker) {
	t.Helper()
	db := testDB(t)
	st := state.NewContainer()
	p := pending.NewTracker(0)
	thumbs := thumb.NewCache()
	f := ingest.NewFlusher(db, time.Millisecond, nil)
	d := download.NewTracker(db, client, st, thumbs, nil)
	return New(db, client, st, p, d, f, thumbs, nil), db, st, p
}

func TestSendMessageOptimistic(t *testing.T) {
	client := &fakeClient{}
	a, db, st, p := newApp(t, client)
	if err := db.UpsertConversation("p1", "Alice", false); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	if err := a.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	msgs := st.Messages()
	if len(msgs) != 1 || !msgs[0].Outgoing || msgs[0].Body != "hi" {
		t.Fatalf("active list = %+v, want the optimistic message", msgs)
	}
	if len(client.sent) != 1 {
		t.Errorf("backend sends = %d, want 1", len(client.sent))
	}
	// The pending entry stays until the echo (or TTL) removes it.
	if !p.Consume(msgs[0].MsgID) {
		t.Error("send not tracked for echo suppression")
	}
}

func TestSendMessageRollbackOnFailure(t *testing.T) {
	client := &fakeClient{sendErr: errors.New("transport down")}
	a, db, st, p := newApp(t, client)
	if err := db.UpsertConversation("p1", "Alice", false); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	if err := a.SendMessage(context.Background(), "hi"); err == nil {
		t.Fatal("send succeeded, want error")
	}

	if got := len(st.Messages()); got != 0 {
		t.Errorf("active list has %d messages after rollback, want 0", got)
	}
	if st.Err() == nil {
		t.Error("no error state recorded")
	}
	if p.Len() != 0 {
		t.Error("pending entry leaked after failed send")
	}
	// Failed sends are never persisted.
	msgs, _ := db.ListMessages("p1", 10, 0)
	if len(msgs) != 0 {
		t.Errorf("log has %d messages, want 0", len(msgs))
	}
}

func TestSendMessagePersistedOnSuccess(t *testing.T) {
	client := &fakeClient{}
	a, db, _, _ := newApp(t, client)
	if err := db.UpsertConversation("p1", "Alice", false); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if err := a.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	a.flusher.Flush()
	msgs, _ := db.ListMessages("p1", 10, 0)
	if len(msgs) != 1 || !msgs[0].Outgoing {
		t.Errorf("log = %+v, want the sent message", msgs)
	}
	c, _ := db.GetConversation("p1")
	if c.LastMessage != "hi" {
		t.Errorf("last message = %q, want hi", c.LastMessage)
	}
}

func TestSendMessageNoActiveConversation(t *testing.T) {
	a, _, _, _ := newApp(t, &fakeClient{})
	if err := a.SendMessage(context.Background(), "hi"); err == nil {
		t.Error("send without active conversation succeeded")
	}
}

func TestOpenChatResetsUnreadOnce(t *testing.T) {
	a, db, st, _ := newApp(t, &fakeClient{})
	if err := db.UpsertConversation("p1", "Alice", false); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := db.IncrementUnread("p1"); err != nil {
			t.Fatal(err)
		}
	}

	// Opening repeatedly settles at zero, never negative, never re-bumped.
	for i := 0; i < 3; i++ {
		if err := a.OpenChat(context.Background(), "p1"); err != nil {
			t.Fatal(err)
		}
	}

	c, _ := db.GetConversation("p1")
	if c.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", c.UnreadCount)
	}
	if st.ActiveID() != "p1" {
		t.Errorf("active = %q, want p1", st.ActiveID())
	}
}

func TestOpenChatLoadsNewestPage(t *testing.T) {
	a, db, st, _ := newApp(t, &fakeClient{})
	var batch []*store.Message
	for i := 0; i < state.RenderCap+20; i++ {
		batch = append(batch, &store.Message{
			ConversationID: "p1", MsgID: fmt.Sprintf("m%d", i),
			Body: fmt.Sprintf("b%d", i), MessageType: store.TypeText,
			Timestamp: int64(1000 + i),
		})
	}
	if err := db.AppendMessageBatch(batch); err != nil {
		t.Fatal(err)
	}

	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	msgs := st.Messages()
	if len(msgs) != state.RenderCap {
		t.Fatalf("loaded %d messages, want render cap %d", len(msgs), state.RenderCap)
	}
	if msgs[len(msgs)-1].Body != fmt.Sprintf("b%d", state.RenderCap+19) {
		t.Errorf("newest loaded = %q", msgs[len(msgs)-1].Body)
	}
}

func TestClearChat(t *testing.T) {
	a, db, st, _ := newApp(t, &fakeClient{})
	if err := db.UpsertConversation("p1", "Alice", false); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendMessage(&store.Message{ConversationID: "p1", MsgID: "m1", Body: "x", MessageType: store.TypeText, Timestamp: 1}); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	if err := a.ClearChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	if c, _ := db.GetConversation("p1"); c != nil {
		t.Error("conversation survived clear")
	}
	if st.ActiveID() != "" {
		t.Error("cleared conversation still active")
	}
}

func TestRequestDownloadRegistersMapping(t *testing.T) {
	a, db, st, _ := newApp(t, &fakeClient{})
	if err := db.AppendMessage(&store.Message{
		ConversationID: "p1", MsgID: "m1", Body: "Image: a.jpg",
		MessageType: store.TypeImage, ShareCode: "sc", Filename: "a.jpg", Timestamp: 1,
	}); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	if err := a.RequestDownload(context.Background(), "m1", "sc", "a.jpg"); err != nil {
		t.Fatal(err)
	}

	task, ok := a.downloads.Task("dl-1")
	if !ok || task.MsgID != "m1" {
		t.Errorf("mapping = (%+v, %v), want dl-1 -> m1", task, ok)
	}
	if m := st.Messages()[0]; !m.IsDownloading || m.DownloadID != "dl-1" {
		t.Errorf("message not marked downloading: %+v", m)
	}
}

func TestThumbnailFetchedOnce(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{thumbData: buf.Bytes()}
	a, _, _, _ := newApp(t, client)

	first, err := a.Thumbnail(context.Background(), "sc")
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Thumbnail(context.Background(), "sc")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("cached preview differs from fetched preview")
	}
	if client.thumbCalls != 1 {
		t.Errorf("backend thumbnail fetches = %d, want 1 (cache hit)", client.thumbCalls)
	}
}

func TestSendAttachment(t *testing.T) {
	client := &fakeClient{}
	a, db, st, _ := newApp(t, client)
	if err := db.UpsertConversation("p1", "Alice", false); err != nil {
		t.Fatal(err)
	}
	if err := a.OpenChat(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	code, err := a.SendAttachment(context.Background(), "/tmp/photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if code != "share-1" {
		t.Errorf("share code = %q, want share-1", code)
	}

	msgs := st.Messages()
	if len(msgs) != 1 {
		t.Fatalf("active list = %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.MessageType != store.TypeImage || m.ShareCode != "share-1" || !m.Outgoing {
		t.Errorf("attachment message = %+v", m)
	}
	if m.Body != "Image: photo.jpg" {
		t.Errorf("body = %q", m.Body)
	}
}
