package ingest

import (
	"sync"
	"time"

	"github.com/jmendes/peerchat/internal/store"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces rapid successive appends into one durable write.
const DefaultDebounce = 300 * time.Millisecond

// Flusher batches message-log appends behind a debounce window. Every
// durable append in the engine goes through here, so a burst of events costs
// one transaction instead of one write each.
type Flusher struct {
	db     *store.DB
	delay  time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	buf   []*store.Message
	timer *time.Timer
}

// NewFlusher creates a flusher with the given debounce window
// (DefaultDebounce if <= 0).
func NewFlusher(db *store.DB, delay time.Duration, logger *zap.Logger) *Flusher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flusher{db: db, delay: delay, logger: logger}
}

// Enqueue schedules a message for the next flush. The first message of a
// burst arms the timer; the rest ride along.
func (f *Flusher) Enqueue(m *store.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = append(f.buf, m)
	if f.timer == nil {
		f.timer = time.AfterFunc(f.delay, f.Flush)
	}
}

// Flush writes all buffered messages in one transaction. Safe to call at any
// time; a failed write is logged and the rest of the app keeps going.
func (f *Flusher) Flush() {
	f.mu.Lock()
	batch := f.buf
	f.buf = nil
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := f.db.AppendMessageBatch(batch); err != nil {
		f.logger.Error("flush message batch", zap.Error(err), zap.Int("count", len(batch)))
	}
}

// Pending returns the number of buffered messages.
func (f *Flusher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buf)
}
