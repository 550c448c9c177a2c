package download

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/jmendes/peerchat/internal/thumb"
)

type fakeClient struct {
	backend.Client

	fileData  []byte
	fileErr   error
	cancelled []string
}

func (f *fakeClient) FetchFile(_ context.Context, _ string) ([]byte, error) {
	return f.fileData, f.fileErr
}

func (f *fakeClient) CancelDownload(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
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

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func setup(t *testing.T, client *fakeClient) (*Tracker, *state.Container, *store.DB) {
	t.Helper()
	db := testDB(t)
	st := state.NewContainer()
	tr := NewTracker(db, client, st, thumb.NewCache(), nil)
	return tr, st, db
}

func TestLifecycleStartedProgressCompleted(t *testing.T) {
	client := &fakeClient{fileData: pngData(t)}
	tr, st, db := setup(t, client)

	if err := db.AppendMessage(&store.Message{
		ConversationID: "p1", MsgID: "m1", Body: "Image: photo.png",
		MessageType: store.TypeImage, Filename: "photo.png", Timestamp: 1000,
	}); err != nil {
		t.Fatal(err)
	}
	st.SetActive("p1", []store.Message{{ConversationID: "p1", MsgID: "m1", Filename: "photo.png"}})

	tr.Register("d1", "p1", "m1", "photo.png")
	tr.OnStarted(backend.DownloadStartedEvent{DownloadID: "d1", Filename: "photo.png"})

	tr.OnProgress(backend.DownloadProgressEvent{DownloadID: "d1", Progress: 40})
	if m := st.Messages()[0]; m.DownloadProgress != 40 || !m.IsDownloading {
		t.Errorf("after progress: %+v, want progress=40 downloading", m)
	}
	if !strings.Contains(st.Messages()[0].Body, "40%") {
		t.Errorf("body = %q, want progress text", st.Messages()[0].Body)
	}

	tr.OnCompleted(context.Background(), backend.DownloadCompletedEvent{
		DownloadID: "d1", Path: "/tmp/photo.png", Filename: "photo.png",
	})
	m := st.Messages()[0]
	if m.Body != "Image: photo.png" {
		t.Errorf("terminal body = %q, want Image: photo.png", m.Body)
	}
	if m.IsDownloading || m.DownloadProgress != 100 {
		t.Errorf("terminal state: %+v", m)
	}
	if _, ok := tr.Task("d1"); ok {
		t.Error("mapping survived completion")
	}

	// Durable copy matches.
	msgs, _ := db.ListMessages("p1", 10, 0)
	if msgs[0].Body != "Image: photo.png" {
		t.Errorf("stored body = %q", msgs[0].Body)
	}
}

func TestProgressBeforeStartedRecovery(t *testing.T) {
	tr, st, _ := setup(t, &fakeClient{})

	// The message already carries the download id, but the tracker has no
	// mapping: the progress event arrived first.
	st.SetActive("p1", []store.Message{{
		ConversationID: "p1", MsgID: "m1", DownloadID: "d1", Filename: "doc.pdf",
	}})

	tr.OnProgress(backend.DownloadProgressEvent{DownloadID: "d1", Progress: 10})

	task, ok := tr.Task("d1")
	if !ok {
		t.Fatal("mapping not recovered from active message list")
	}
	if task.MsgID != "m1" || task.State != Downloading {
		t.Errorf("recovered task = %+v", task)
	}
	if st.Messages()[0].DownloadProgress != 10 {
		t.Errorf("progress not applied after recovery")
	}
}

func TestStartedMintsPlaceholder(t *testing.T) {
	tr, st, db := setup(t, &fakeClient{})
	st.SetActive("p1", nil)

	tr.OnStarted(backend.DownloadStartedEvent{DownloadID: "d1", Filename: "a.bin", Timestamp: 1_700_000_000})

	msgs := st.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want minted placeholder", len(msgs))
	}
	if !msgs[0].IsDownloading || msgs[0].DownloadID != "d1" {
		t.Errorf("placeholder = %+v", msgs[0])
	}
	if msgs[0].Timestamp != 1_700_000_000_000 {
		t.Errorf("timestamp = %d, want normalized millis", msgs[0].Timestamp)
	}

	stored, _ := db.ListMessages("p1", 10, 0)
	if len(stored) != 1 {
		t.Errorf("placeholder not persisted")
	}
}

func TestFailedLocalizesError(t *testing.T) {
	tr, st, _ := setup(t, &fakeClient{})
	st.SetActive("p1", []store.Message{{ConversationID: "p1", MsgID: "m1", IsDownloading: true}})
	tr.Register("d1", "p1", "m1", "a.bin")

	tr.OnFailed(backend.DownloadFailedEvent{DownloadID: "d1", Error: "peer unreachable"})

	m := st.Messages()[0]
	if !strings.Contains(m.Body, "peer unreachable") {
		t.Errorf("body = %q, want failure reason embedded", m.Body)
	}
	if m.IsDownloading || m.DownloadProgress != 0 {
		t.Errorf("failed state: %+v", m)
	}
	if _, ok := tr.Task("d1"); ok {
		t.Error("mapping survived failure")
	}
}

func TestCompletedFetchErrorFallsBackToExtension(t *testing.T) {
	tr, st, _ := setup(t, &fakeClient{fileErr: errors.New("gone")})
	st.SetActive("p1", []store.Message{{ConversationID: "p1", MsgID: "m1"}})
	tr.Register("d1", "p1", "m1", "photo.jpg")
	tr.OnProgress(backend.DownloadProgressEvent{DownloadID: "d1", Progress: 50})

	tr.OnCompleted(context.Background(), backend.DownloadCompletedEvent{DownloadID: "d1", Filename: "photo.jpg"})

	if body := st.Messages()[0].Body; body != "Image: photo.jpg" {
		t.Errorf("body = %q, want extension-classified image", body)
	}
}

func TestCancelDropsMapping(t *testing.T) {
	client := &fakeClient{}
	tr, _, _ := setup(t, client)
	tr.Register("d1", "p1", "m1", "a.bin")

	if err := tr.Cancel(context.Background(), "d1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.Task("d1"); ok {
		t.Error("mapping survived cancel")
	}
	if len(client.cancelled) != 1 || client.cancelled[0] != "d1" {
		t.Errorf("backend cancel calls = %v", client.cancelled)
	}
}

func TestUnknownEventsAreHarmless(t *testing.T) {
	tr, _, _ := setup(t, &fakeClient{})
	tr.OnCompleted(context.Background(), backend.DownloadCompletedEvent{DownloadID: "nope"})
	tr.OnFailed(backend.DownloadFailedEvent{DownloadID: "nope"})
	tr.OnProgress(backend.DownloadProgressEvent{DownloadID: "nope", Progress: 5})
}

func TestClassify(t *testing.T) {
	png := pngData(t)
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{"magic bytes win", "misnamed.txt", png, store.TypeImage},
		{"binary data", "a.jpg", []byte("definitely not an image"), store.TypeFile},
		{"extension fallback image", "photo.JPG", nil, store.TypeImage},
		{"extension fallback file", "doc.pdf", nil, store.TypeFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.filename, tt.data); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
