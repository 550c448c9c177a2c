package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/rivo/tview"
)

// MessageThread shows one conversation's messages above a composer.
type MessageThread struct {
	*tview.Flex
	messages *tview.TextView
	composer *tview.InputField
	convID   string
	rendered []store.Message
	onSend   func(text string)
}

// NewMessageThread creates the thread view.
func NewMessageThread() *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetTitle(" Messages ")

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetTitle(" Compose (i to focus) ")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		messages: messages,
		composer: composer,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if text != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// SetConversation updates the active conversation id and title.
func (mt *MessageThread) SetConversation(id, name string) {
	mt.convID = id
	if name == "" {
		name = id
	}
	mt.messages.SetTitle(fmt.Sprintf(" %s ", name))
}

// ConversationID returns the conversation this thread renders.
func (mt *MessageThread) ConversationID() string {
	return mt.convID
}

// SetOnSend registers the send callback.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update re-renders the thread, oldest first, scrolled to the newest.
func (mt *MessageThread) Update(msgs []store.Message) {
	mt.messages.Clear()
	mt.rendered = msgs

	for _, m := range msgs {
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderID
		}
		if m.Outgoing {
			sender = "You"
		}

		body := m.Body
		if m.IsDownloading {
			body = fmt.Sprintf("%s [yellow]%s[-]", body, progressBar(m.DownloadProgress))
		}

		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			tview.Escape(sanitizeForTerminal(sender)),
			formatTimestamp(m.Timestamp),
			tview.Escape(sanitizeForTerminal(body)))
		_, _ = fmt.Fprint(mt.messages, line)
	}

	mt.messages.ScrollToEnd()
}

// SelectedAttachment returns the newest attachment message in the thread that
// still has a share code, which is the one a download keybinding targets.
func (mt *MessageThread) SelectedAttachment() *store.Message {
	for i := len(mt.rendered) - 1; i >= 0; i-- {
		m := mt.rendered[i]
		if m.ShareCode != "" && !m.Outgoing {
			return &m
		}
	}
	return nil
}

// Composer returns the input field for focus management.
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

func progressBar(pct int) string {
	const width = 10
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = '-'
		}
	}
	return fmt.Sprintf("[%s] %d%%", string(bar), pct)
}
