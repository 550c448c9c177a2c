package thumb

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
)

func TestCacheBound(t *testing.T) {
	c := NewCache()
	for i := 0; i < Capacity*2; i++ {
		c.Put(fmt.Sprintf("key-%d", i), "preview")
		if c.Len() > Capacity {
			t.Fatalf("cache size %d exceeds capacity %d", c.Len(), Capacity)
		}
	}
	if c.Len() != Capacity {
		t.Errorf("final size = %d, want %d", c.Len(), Capacity)
	}
}

func TestCacheLRURetention(t *testing.T) {
	c := NewCache()
	for i := 0; i < Capacity; i++ {
		c.Put(fmt.Sprintf("key-%d", i), "preview")
	}

	// Touch key-0 so it becomes the most recently used.
	if _, ok := c.Get("key-0"); !ok {
		t.Fatal("key-0 missing before eviction")
	}

	// Inserting one more must evict key-1, the least recently used.
	c.Put("key-new", "preview")
	if _, ok := c.Get("key-0"); !ok {
		t.Error("recently touched key-0 was evicted")
	}
	if _, ok := c.Get("key-1"); ok {
		t.Error("least recently used key-1 survived eviction")
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Put("k", "v")
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("size after Clear = %d, want 0", c.Len())
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPreviewDataURI(t *testing.T) {
	uri, err := Preview(pngBytes(t, 512, 256))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("preview %q missing data URI prefix", uri[:min(len(uri), 40)])
	}
}

func TestPreviewRejectsGarbage(t *testing.T) {
	if _, err := Preview([]byte("not an image")); err == nil {
		t.Error("Preview of garbage bytes succeeded, want error")
	}
}

func TestIsImageData(t *testing.T) {
	if !IsImageData(pngBytes(t, 4, 4)) {
		t.Error("PNG bytes not detected as image")
	}
	if IsImageData([]byte("plain text content")) {
		t.Error("text detected as image")
	}
	if IsImageData([]byte("ab")) {
		t.Error("short buffer detected as image")
	}
}
