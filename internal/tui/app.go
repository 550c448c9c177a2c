// Package tui renders the sync engine's state container as a terminal UI.
// It never touches the stores directly; every mutation goes through the app
// facade and every read comes from the state container.
package tui

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jmendes/peerchat/internal/app"
	"github.com/jmendes/peerchat/internal/tui/views"
	"github.com/rivo/tview"
)

// App is the TUI shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	core     *app.App
	convList *views.ConversationList
	thread   *views.MessageThread
	searchV  *views.SearchView
	shareV   *views.ShareView
	statusV  *views.StatusBar
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApp creates the TUI over an already started engine.
func NewApp(core *app.App, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		core:     core,
		convList: views.NewConversationList(),
		thread:   views.NewMessageThread(),
		searchV:  views.NewSearchView(),
		shareV:   views.NewShareView(),
		statusV:  views.NewStatusBar(),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.statusV.SetSession(sessionName)
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		if id := a.convList.Selected(); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		if strings.HasPrefix(text, "/") {
			a.runCommand(ParseCommand(text[1:]))
			return
		}
		go func() {
			if err := a.core.SendMessage(a.ctx, text); err != nil {
				a.flash("Send failed: " + err.Error())
			}
			a.redraw()
		}()
	})

	a.searchV.Results().SetSelectedFunc(func(row, col int) {
		if conv, _ := a.searchV.SelectedResult(); conv != "" {
			a.openChat(conv)
		}
	})

	a.searchV.SetOnQuery(func(query string) {
		go func() {
			results, err := a.core.Search(query, "", 50)
			if err != nil {
				a.flash("Search failed: " + err.Error())
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.searchV.Update(results)
				a.app.SetFocus(a.searchV.Results())
			})
		}()
	})
}

func (a *App) setupLayout() {
	a.pages.AddPage("chats", a.convList, true, true)
	a.pages.AddPage("chat", a.thread, true, false)
	a.pages.AddPage("search", a.searchV, true, false)
	a.pages.AddPage("share", a.shareV, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusV, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	currentPage, _ := a.pages.GetFrontPage()

	if event.Key() == tcell.KeyEscape {
		switch currentPage {
		case "chat":
			a.core.CloseChat()
			a.showChats()
			return nil
		case "search", "share":
			a.showChats()
			return nil
		}
	}

	// Text inputs own their keys.
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		return event
	}

	if event.Key() != tcell.KeyRune {
		return event
	}

	switch event.Rune() {
	case 'q':
		if currentPage == "chats" {
			a.Stop()
			return nil
		}
	case 's':
		a.pages.SwitchToPage("search")
		a.app.SetFocus(a.searchV.Input())
		return nil
	case 'i':
		if currentPage == "chat" {
			a.app.SetFocus(a.thread.Composer())
			return nil
		}
	case 'd':
		if currentPage == "chat" {
			a.downloadSelected()
			return nil
		}
	case 'x':
		if currentPage == "chats" {
			if id := a.convList.Selected(); id != "" {
				a.clearChat(id)
			}
			return nil
		}
	}

	return event
}

func (a *App) openChat(id string) {
	go func() {
		if err := a.core.OpenChat(a.ctx, id); err != nil {
			a.flash("Open failed: " + err.Error())
			return
		}
		name := id
		for _, c := range a.core.State().Conversations() {
			if c.ID == id && c.Name != "" {
				name = c.Name
				break
			}
		}
		a.app.QueueUpdateDraw(func() {
			a.thread.SetConversation(id, name)
			a.thread.Update(a.core.State().Messages())
			a.pages.SwitchToPage("chat")
			a.app.SetFocus(a.thread)
		})
	}()
}

func (a *App) showChats() {
	a.pages.SwitchToPage("chats")
	a.convList.Update(a.core.State().Conversations())
	a.app.SetFocus(a.convList)
}

func (a *App) downloadSelected() {
	m := a.thread.SelectedAttachment()
	if m == nil {
		a.flash("No attachment to download")
		return
	}
	if m.IsDownloading {
		a.flash("Already downloading")
		return
	}
	go func() {
		if err := a.core.RequestDownload(a.ctx, m.MsgID, m.ShareCode, m.Filename); err != nil {
			a.flash("Download failed: " + err.Error())
		}
		a.redraw()
	}()
}

func (a *App) clearChat(id string) {
	go func() {
		if err := a.core.ClearChat(a.ctx, id); err != nil {
			a.flash("Clear failed: " + err.Error())
		}
		a.redraw()
	}()
}

// runCommand handles composer slash commands in the active conversation.
func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "attach", "share":
		if cmd.Args == "" {
			a.flash("usage: /attach <path>")
			return
		}
		go func() {
			code, err := a.core.SendAttachment(a.ctx, cmd.Args)
			if err != nil {
				a.flash("Share failed: " + err.Error())
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.showShareCode(filepath.Base(cmd.Args), code)
			})
		}()
	case "join":
		if cmd.Args == "" {
			a.flash("usage: /join <invite code>")
			return
		}
		go func() {
			if err := a.core.JoinGroup(a.ctx, cmd.Args); err != nil {
				a.flash("Join failed: " + err.Error())
			} else {
				a.flash("Joined group")
			}
		}()
	default:
		a.flash("unknown command: /" + cmd.Name)
	}
}

// showShareCode switches to the QR view for a shared file.
func (a *App) showShareCode(filename, code string) {
	a.shareV.Show(filename, code)
	a.pages.SwitchToPage("share")
}

func (a *App) flash(msg string) {
	a.app.QueueUpdateDraw(func() {
		a.statusV.SetFlash(msg)
	})
}

// Run starts the UI and blocks until quit. It repaints whenever the state
// container signals a change.
func (a *App) Run() error {
	go a.refreshLoop()
	a.showChats()
	return a.app.Run()
}

func (a *App) refreshLoop() {
	// A slow ticker keeps the clock and flash fresh even when the engine
	// is quiet.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.core.State().RefreshCh():
			a.redraw()
		case <-ticker.C:
			a.redraw()
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) redraw() {
	a.app.QueueUpdateDraw(func() {
		st := a.core.State()

		currentPage, _ := a.pages.GetFrontPage()
		switch currentPage {
		case "chats":
			a.convList.Update(st.Conversations())
		case "chat":
			a.thread.Update(st.Messages())
		}

		if err := st.Err(); err != nil {
			a.statusV.SetStatus("[red]SYNC ERROR[-]")
			a.statusV.SetFlash(err.Error())
		} else {
			a.statusV.SetStatus("[green]OK[-]")
		}
	})
}

// Stop shuts the UI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
