package ingest

import (
	"fmt"

	"github.com/jmendes/peerchat/internal/store"
)

// AttachmentBody renders the placeholder text shown for a binary attachment.
func AttachmentBody(msgType, filename string, size int64) string {
	label := "File"
	if msgType == store.TypeImage {
		label = "Image"
	}
	if filename == "" {
		filename = "unnamed"
	}
	if size <= 0 {
		return fmt.Sprintf("%s: %s", label, filename)
	}
	return fmt.Sprintf("%s: %s (%s)", label, filename, HumanSize(size))
}

// HumanSize formats a byte count for display.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
