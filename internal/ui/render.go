package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/gatehouse/internal/binding"
	"github.com/five82/gatehouse/internal/state"
)

// renderList renders a collection view: table pane plus detail pane.
func (m Model) renderList(height int) string {
	v := m.view()
	pv := m.page(v)

	tableWidth := m.width
	showDetail := m.width >= LayoutCompactWidth
	if showDetail {
		if m.width >= LayoutExtraWideWidth {
			tableWidth = m.width * 65 / 100
		} else {
			tableWidth = m.width * 60 / 100
		}
	}

	content := m.renderTable(v, pv, tableWidth-2, height-2)
	tablePane := m.renderTitledBox(m.listTitle(v, pv), content, tableWidth, height, true)
	if !showDetail {
		return tablePane
	}

	detailWidth := m.width - tableWidth
	detailPane := m.renderTitledBox("Details", m.renderDetail(detailWidth-4), detailWidth, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, detailPane)
}

func (m Model) listTitle(v *viewState, pv pageView) string {
	title := fmt.Sprintf("%s (%d)", viewTitle(v.kind), pv.total)
	if pv.pages > 1 {
		title += fmt.Sprintf(" · %d/%d", pv.page, pv.pages)
	}
	if v.sortCol >= 0 && v.sortCol < len(pv.table.Columns) {
		arrow := "↑"
		if v.sortDesc {
			arrow = "↓"
		}
		title += " · " + pv.table.Columns[v.sortCol].Title + arrow
	}
	return title
}

// renderTable renders the header, status line and rows of one page.
func (m Model) renderTable(v *viewState, pv pageView, width, height int) string {
	styles := m.theme.Styles()
	bgColor := m.theme.SurfaceAlt
	bg := NewBgStyle(bgColor)
	widths := columnWidths(pv.table.Columns, width)

	var lines []string

	header := make([]string, len(pv.table.Columns))
	for i, c := range pv.table.Columns {
		header[i] = fit(c.Title, widths[i])
	}
	lines = append(lines, bg.Render(strings.Join(header, " "), styles.MutedText.Bold(true)))

	if status := m.statusLine(pv.meta, styles, bg); status != "" {
		lines = append(lines, status)
	}

	if len(pv.table.Rows) == 0 && pv.meta.Status == state.StatusReady {
		lines = append(lines, bg.Render("No records", styles.FaintText))
	}

	statusCol := columnIndex(pv.table.Columns, "status", "action")
	for i, row := range pv.table.Rows {
		if len(lines) >= height {
			break
		}
		lines = append(lines, m.renderRow(row, widths, statusCol, i == v.cursor, width, bgColor))
	}

	return strings.Join(lines, "\n")
}

// statusLine reports loading and failure next to the table. A failed load
// keeps showing the previous rows.
func (m Model) statusLine(meta state.Meta, styles Styles, bg BgStyle) string {
	switch meta.Status {
	case state.StatusIdle:
		return bg.Render("Not loaded yet", styles.FaintText)
	case state.StatusLoading:
		if meta.Count == 0 {
			return bg.Render("Loading...", styles.WarningText)
		}
	case state.StatusFailed:
		return bg.Render("Error: "+meta.Error, styles.DangerText) + bg.Spaces(2) +
			bg.Render("r", styles.AccentText) + bg.Render(" to retry", styles.MutedText)
	}
	return ""
}

func (m Model) renderRow(row binding.Row, widths []int, statusCol int, selected bool, width int, bgColor string) string {
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	cells := make([]string, len(widths))
	for i, w := range widths {
		text := ""
		if i < len(row.Cells) {
			text = row.Cells[i]
		}
		style := styles.Text
		switch {
		case selected:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		case i == statusCol:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(row.Status)))
		case i == 0:
			style = styles.MutedText
		}
		cells[i] = bg.Render(fit(text, w), style)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(bgColor)).
		Width(width).
		Render(strings.Join(cells, bg.Space()))
}

// columnWidths scales the preferred widths to the pane. The last column
// absorbs any spare room.
func columnWidths(cols []binding.Column, width int) []int {
	widths := make([]int, len(cols))
	if len(cols) == 0 {
		return widths
	}
	avail := width - (len(cols) - 1)
	want := 0
	for _, c := range cols {
		want += c.Width
	}
	if want <= 0 {
		return widths
	}
	used := 0
	for i, c := range cols {
		w := c.Width
		if want > avail {
			w = max(c.Width*avail/want, 3)
		}
		widths[i] = w
		used += w
	}
	if used < avail {
		widths[len(widths)-1] += avail - used
	}
	return widths
}

func columnIndex(cols []binding.Column, keys ...string) int {
	for i, c := range cols {
		for _, k := range keys {
			if c.Key == k {
				return i
			}
		}
	}
	return -1
}

// renderDetail renders the fields of the selected record.
func (m Model) renderDetail(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)

	row, ok := m.selectedRow()
	if !ok || m.reg == nil {
		return bg.Render("Select a record", styles.MutedText)
	}

	fields := binding.Detail(m.reg, m.current, row.ID)
	if m.current == state.KindVehicles {
		if qr, ok := m.qr[row.ID]; ok {
			fields = append(fields, binding.Field{Key: "qr", Label: "QR", Value: qr})
		}
	}

	labelWidth := 0
	for _, f := range fields {
		labelWidth = max(labelWidth, len([]rune(f.Label)))
	}
	valueWidth := max(width-labelWidth-1, 8)

	var lines []string
	for _, f := range fields {
		lines = append(lines,
			bg.Render(padRight(f.Label, labelWidth), styles.MutedText)+bg.Space()+
				bg.Render(truncate(f.Value, valueWidth), styles.Text))
	}

	switch m.current {
	case state.KindUsers:
		lines = append(lines, "", bg.Render("enter: load full profile", styles.FaintText))
	case state.KindSettings:
		lines = append(lines, "", bg.Render("enter: edit value", styles.FaintText))
	}
	return strings.Join(lines, "\n")
}

// renderDashboard renders the metric cards and the recent requests list.
func (m Model) renderDashboard(height int) string {
	styles := m.theme.Styles()
	v := m.views[state.KindMetrics]
	pv := m.page(v)

	var fields []binding.Field
	if m.reg != nil {
		fields = binding.Summary(m.reg)
	}

	var cards string
	if len(fields) == 0 {
		bg := NewBgStyle(m.theme.Background)
		msg := m.statusLine(pv.meta, styles, bg)
		if msg == "" {
			msg = bg.Render("No metrics", styles.FaintText)
		}
		cards = lipgloss.NewStyle().Width(m.width).Height(3).Render(msg)
	} else {
		cardWidth := max(m.width/len(fields)-2, 14)
		rendered := make([]string, len(fields))
		for i, f := range fields {
			body := styles.AccentText.Bold(true).Render(f.Value) + "\n" + styles.MutedText.Render(truncate(f.Label, cardWidth-2))
			rendered[i] = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(m.theme.Border)).
				Width(cardWidth).
				Padding(0, 1).
				Render(body)
		}
		cards = lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	listHeight := max(height-lipgloss.Height(cards), 4)
	content := m.renderTable(v, pv, m.width-2, listHeight-2)
	recent := m.renderTitledBox("Recent Requests", content, m.width, listHeight, true)

	return lipgloss.JoinVertical(lipgloss.Left, cards, recent)
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
	} else {
		borderColorStr = m.theme.Border
	}
	bgColorStr = m.theme.SurfaceAlt
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 0))
	titleLen := len([]rune(title))
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	paddedLines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}
