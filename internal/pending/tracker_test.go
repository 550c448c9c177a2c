package pending

import (
	"strings"
	"testing"
	"time"
)

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNewIDShape(t *testing.T) {
	id := NewID()
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("id %q, want millis-counter-suffix", id)
	}
}

func TestConsumeSuppressesOnce(t *testing.T) {
	tr := NewTracker(0)
	tr.Track("x")

	if !tr.Consume("x") {
		t.Error("first Consume = false, want true (echo suppressed)")
	}
	if tr.Consume("x") {
		t.Error("second Consume = true, want false (entry removed)")
	}
}

func TestConsumeUnknown(t *testing.T) {
	tr := NewTracker(0)
	if tr.Consume("never-tracked") {
		t.Error("Consume of unknown id = true, want false")
	}
}

func TestForget(t *testing.T) {
	tr := NewTracker(0)
	tr.Track("x")
	tr.Forget("x")
	if tr.Consume("x") {
		t.Error("Consume after Forget = true, want false")
	}
}

func TestSweepDropsExpired(t *testing.T) {
	tr := NewTracker(time.Second)
	now := time.Now()
	tr.now = func() time.Time { return now }

	tr.Track("old")
	now = now.Add(2 * time.Second)
	tr.Track("fresh")

	if dropped := tr.Sweep(); dropped != 1 {
		t.Errorf("Sweep dropped %d, want 1", dropped)
	}
	if tr.Consume("old") {
		t.Error("expired entry survived sweep")
	}
	if !tr.Consume("fresh") {
		t.Error("fresh entry dropped by sweep")
	}
}
