// Package pending tracks optimistically sent message ids so the backend's
// echo of our own send can be recognized and suppressed.
package pending

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL bounds how long an entry waits for its echo. A lost echo is
// dropped by Sweep instead of leaking forever.
const DefaultTTL = 30 * time.Second

// sendCounter is process-wide and monotonic for the process lifetime,
// initialized once at startup. It distinguishes ids minted within the same
// millisecond.
var sendCounter atomic.Uint64

// Tracker is the short-lived set of locally generated message ids awaiting
// backend echo suppression.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewTracker creates a tracker with the given echo TTL (DefaultTTL if <= 0).
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewID mints a message id unique across concurrent sends and process
// restarts: millisecond prefix, process-monotonic counter, random suffix.
func NewID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%d-%s", time.Now().UnixMilli(), sendCounter.Add(1), suffix)
}

// Track registers an id at the moment of optimistic send.
func (t *Tracker) Track(id string) {
	t.mu.Lock()
	t.entries[id] = t.now()
	t.mu.Unlock()
}

// Consume reports whether id was pending and removes it. The ingestion
// engine calls this for every inbound message: true means the event is the
// echo of our own send and must be discarded.
func (t *Tracker) Consume(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return false
	}
	delete(t.entries, id)
	return true
}

// Forget drops an id without consuming it (send failed, no echo coming).
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// Sweep removes entries older than the TTL and returns how many were
// dropped. The poller runs this every tick.
func (t *Tracker) Sweep() int {
	cutoff := t.now().Add(-t.ttl)
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for id, at := range t.entries {
		if at.Before(cutoff) {
			delete(t.entries, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of pending entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
