package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/gatehouse/internal/state"
)

// viewTitle is the display name of a view.
func viewTitle(kind state.Kind) string {
	switch kind {
	case state.KindMetrics:
		return "Dashboard"
	case state.KindLogs:
		return "Gate Logs"
	case state.KindAudit:
		return "Audit"
	default:
		return titleCase(string(kind))
	}
}

// renderHeader renders the status bar: logo, view tabs, store status and the
// flash message.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("gatehouse", styles.Logo)}

	if m.width < LayoutCompactWidth {
		parts = append(parts, bg.Render(viewTitle(m.current), styles.AccentText.Bold(true)))
	} else {
		tabs := make([]string, 0, len(state.Kinds()))
		for i, kind := range state.Kinds() {
			label := strconv.Itoa(i+1) + " " + viewTitle(kind)
			if kind == m.current {
				tabs = append(tabs, bg.Render(label, styles.AccentText.Bold(true)))
			} else {
				tabs = append(tabs, bg.Render(label, styles.FaintText))
			}
		}
		parts = append(parts, strings.Join(tabs, bg.Space()))
	}

	if status := m.renderStoreStatus(styles, bg); status != "" {
		parts = append(parts, status)
	}

	if m.flash.text != "" {
		style := styles.SuccessText
		if m.flash.isErr {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(truncate(m.flash.text, 60), style))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxHeight(1).
		Render(strings.Join(parts, sep))
}

// renderStoreStatus describes the current view's store.
func (m Model) renderStoreStatus(styles Styles, bg BgStyle) string {
	if m.reg == nil {
		return ""
	}
	meta, ok := m.reg.Meta(m.current)
	if !ok {
		return ""
	}
	if meta.IsOffline() {
		return bg.Render("OFFLINE", styles.DangerText.Bold(true))
	}
	switch meta.Status {
	case state.StatusLoading:
		return bg.Render("Loading...", styles.WarningText.Bold(true))
	case state.StatusFailed:
		return bg.Render("Load failed", styles.DangerText)
	case state.StatusReady:
		if meta.UpdatedAt.IsZero() {
			return ""
		}
		return bg.Render("updated", styles.FaintText) + bg.Space() +
			bg.Render(meta.UpdatedAt.Local().Format("15:04:05"), styles.MutedText)
	default:
		return ""
	}
}

// renderCommandBar renders the key hints of the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	if m.searching {
		return styles.Header.Width(m.width).Render(
			bg.Render("Search", styles.AccentText) + bg.Space() + m.search.View() + bg.Spaces(2) +
				bg.Render("enter/esc: done", styles.FaintText))
	}

	switch m.current {
	case state.KindMetrics:
		commands = []cmd{{"tab", "Views"}, {"j/k", "Navigate"}, {"r", "Refresh all"}}
	case state.KindVehicles:
		commands = []cmd{{"/", "Search"}, {"f", "Status"}, {"a", "Approve"}, {"R", "Reject"}, {"b", "Block"}, {"q", "QR"}}
	case state.KindUsers:
		commands = []cmd{{"/", "Search"}, {"enter", "Detail"}}
	case state.KindGuards:
		commands = []cmd{{"A", "Assign gate"}, {"n", "New guard"}}
	case state.KindRequests:
		commands = []cmd{{"f", "Status"}, {"a", "Approve"}, {"R", "Reject"}}
	case state.KindLogs:
		commands = []cmd{{"/", "Vehicle"}, {"f", "Date"}, {"F", "Guard"}, {"x", "Export"}}
	case state.KindDues:
		commands = []cmd{{"f", "Status"}, {"p", "Mark paid"}, {"b", "Block vehicle"}}
	case state.KindAudit:
		commands = []cmd{{"f", "Date"}, {"F", "Action"}}
	case state.KindSettings:
		commands = []cmd{{"enter", "Edit"}, {"o", "Toggle OCR"}}
	}
	if !m.current.SingleRecord() {
		commands = append(commands, cmd{"[/]", "Page"}, cmd{"s", "Sort"})
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if summary := filterSummary(m.current, m.view().composer.Query()); summary != "" {
		segments = append(segments, bg.Render(truncate(summary, 30), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).MaxHeight(1).Render(strings.Join(segments, bg.Spaces(2)))
}
