package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// StatusBar is the one line footer: session, sync health, clock, flash.
type StatusBar struct {
	*tview.TextView
	session string
	status  string
	flash   string
}

// NewStatusBar creates the status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv}
}

// SetSession sets the session name display.
func (sb *StatusBar) SetSession(name string) {
	sb.session = name
	sb.render()
}

// SetStatus sets the sync health display.
func (sb *StatusBar) SetStatus(status string) {
	sb.status = status
	sb.render()
}

// SetFlash sets a transient message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s",
		sb.session, sb.status, time.Now().Format("15:04"))
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", tview.Escape(sb.flash))
	}
	_, _ = fmt.Fprint(sb, line)
}
