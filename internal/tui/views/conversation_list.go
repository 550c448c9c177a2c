package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/rivo/tview"
)

// ConversationList is the main conversation table: name, last message
// preview, recency, and an unread badge.
type ConversationList struct {
	*tview.Table
	conversations []store.Conversation
	filter        string
}

// NewConversationList creates the conversation list table.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetTitle(" Conversations ")
	table.SetSelectedStyle(tcell.StyleDefault.Reverse(true))

	return &ConversationList{Table: table}
}

// Update replaces the backing data and re-renders.
func (cl *ConversationList) Update(conversations []store.Conversation) {
	cl.conversations = conversations
	cl.render()
}

// SetFilter narrows the visible rows to those matching the text.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

func (cl *ConversationList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	row := 1
	for _, c := range cl.visible() {
		name := c.Name
		if name == "" {
			name = c.ID
		}
		kind := "DM"
		if c.IsGroup {
			kind = "GROUP"
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf("[red::b]%d[-:-:-]", c.UnreadCount)
		}

		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(name))).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(c.LastMessage))).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(c.LastMessageAt)).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(kind).SetAlign(tview.AlignRight))
		cl.SetCell(row, 4, tview.NewTableCell(unread).SetAlign(tview.AlignRight))
		row++
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d/%d) filter: %s ", row-1, len(cl.conversations), cl.filter))
	} else {
		cl.SetTitle(fmt.Sprintf(" Conversations (%d) ", len(cl.conversations)))
	}
}

// Selected returns the id of the currently selected conversation, or "".
func (cl *ConversationList) Selected() string {
	row, _ := cl.GetSelection()
	idx := row - 1 // header row
	visible := cl.visible()
	if idx < 0 || idx >= len(visible) {
		return ""
	}
	return visible[idx].ID
}

func (cl *ConversationList) visible() []store.Conversation {
	if cl.filter == "" {
		return cl.conversations
	}
	needle := strings.ToLower(cl.filter)
	var out []store.Conversation
	for _, c := range cl.conversations {
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.LastMessage), needle) {
			out = append(out, c)
		}
	}
	return out
}
