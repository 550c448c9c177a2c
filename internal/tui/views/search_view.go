package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/jmendes/peerchat/internal/store"
	"github.com/rivo/tview"
)

// SearchView is a query input over full-text search results.
type SearchView struct {
	*tview.Flex
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	data    []store.SearchResult
}

// NewSearchView creates the search view.
func NewSearchView() *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetTitle(" Results ")
	results.SetSelectedStyle(tcell.StyleDefault.Reverse(true))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	return &SearchView{
		Flex:    flex,
		input:   input,
		results: results,
	}
}

// SetOnQuery registers the callback run when a query is submitted.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(sv.input.GetText())
		}
	})
}

// Update replaces the result rows.
func (sv *SearchView) Update(results []store.SearchResult) {
	sv.data = results
	sv.results.Clear()

	headers := []string{" CONVERSATION", " SNIPPET", " TIME"}
	for col, h := range headers {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	for i, r := range results {
		row := i + 1
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(r.Message.ConversationID)).SetMaxWidth(25))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(r.Snippet))).SetExpansion(1))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(r.Message.Timestamp)).SetMaxWidth(12))
	}
}

// SelectedResult returns the conversation and message id of the selected row.
func (sv *SearchView) SelectedResult() (string, string) {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(sv.data) {
		return sv.data[idx].Message.ConversationID, sv.data[idx].Message.MsgID
	}
	return "", ""
}

// Input returns the query field for focus management.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table for focus management.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
