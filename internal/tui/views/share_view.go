package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// ShareView displays a file's share code as a scannable QR block so a peer
// on another machine can type or scan it.
type ShareView struct {
	*tview.TextView
}

// NewShareView creates the share code view.
func NewShareView() *ShareView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetTitle(" Share Code ")

	return &ShareView{TextView: tv}
}

// Show renders the share code and its QR encoding.
func (sv *ShareView) Show(filename, code string) {
	sv.Clear()
	_, _ = fmt.Fprintf(sv, "\n  %s\n\n  Code: [::b]%s[-:-:-]\n\n%s\n  [::d]Esc to go back",
		tview.Escape(sanitizeForTerminal(filename)), tview.Escape(code), renderQR(code))
}

// renderQR encodes content as a compact QR using Unicode half blocks, two
// module rows per terminal row.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top && !bot:
				sb.WriteRune('▀')
			case !top && bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
