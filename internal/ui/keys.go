package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Retry      key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PrevPage key.Binding
	NextPage key.Binding

	// Query
	Search      key.Binding
	CycleFilter key.Binding
	OtherFilter key.Binding
	SortColumn  key.Binding
	SortDir     key.Binding

	// Record actions
	Detail     key.Binding
	MarkPaid   key.Binding
	Block      key.Binding
	Approve    key.Binding
	Reject     key.Binding
	AssignGate key.Binding
	NewGuard   key.Binding
	ShowQR     key.Binding
	ToggleOCR  key.Binding
	Export     key.Binding

	// Search/input
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close / dashboard"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload view"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "First row"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Last row"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "left", "pgup"),
			key.WithHelp("[", "Previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "right", "pgdown"),
			key.WithHelp("]", "Next page"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Cycle filter"),
		),
		OtherFilter: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Second filter"),
		),
		SortColumn: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Sort column"),
		),
		SortDir: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Reverse sort"),
		),

		Detail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Details / edit"),
		),
		MarkPaid: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "Mark due paid"),
		),
		Block: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Block vehicle"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Approve"),
		),
		Reject: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Reject"),
		),
		AssignGate: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Assign gate"),
		),
		NewGuard: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New guard"),
		),
		ShowQR: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "Vehicle QR"),
		),
		ToggleOCR: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Toggle OCR"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Export logs CSV"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Escape, k.Retry},
		{k.Up, k.Down, k.Top, k.Bottom, k.PrevPage, k.NextPage},
		{k.Search, k.CycleFilter, k.OtherFilter, k.SortColumn, k.SortDir},
		{k.Detail, k.MarkPaid, k.Block, k.Approve, k.Reject, k.AssignGate, k.NewGuard, k.ShowQR, k.ToggleOCR, k.Export},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
