package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/gatehouse/internal/binding"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
)

// handleListKey handles navigation, query and record keys of the current
// view.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.view()
	pv := m.page(v)
	t, page, pages := pv.table, pv.page, pv.pages

	switch {
	case key.Matches(msg, m.keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if v.cursor < len(t.Rows)-1 {
			v.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		v.cursor = 0
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		v.cursor = max(len(t.Rows)-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if page > 1 {
			v.composer.SetPage(page - 1)
			v.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if page < pages {
			v.composer.SetPage(page + 1)
			v.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		if v.kind.SearchKey() == "" {
			m.setFlash("No search in "+titleCase(string(v.kind)), true)
			return m, nil
		}
		m.searching = true
		m.search.SetValue(v.composer.PendingSearch())
		m.search.CursorEnd()
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleFilter):
		m.cycleFilter(v, 0)
		return m, nil

	case key.Matches(msg, m.keys.OtherFilter):
		cmd := m.otherFilter(v)
		return m, cmd

	case key.Matches(msg, m.keys.SortColumn):
		v.sortCol++
		if v.sortCol >= len(t.Columns) {
			v.sortCol = -1
		}
		return m, nil

	case key.Matches(msg, m.keys.SortDir):
		v.sortDesc = !v.sortDesc
		return m, nil
	}

	return m.handleActionKey(msg)
}

// cycleFilter advances the idx-th option filter of v.
func (m *Model) cycleFilter(v *viewState, idx int) {
	var cyclable []binding.FilterSpec
	for _, f := range binding.Filters(v.kind) {
		if !f.FreeText() {
			cyclable = append(cyclable, f)
		}
	}
	if idx >= len(cyclable) {
		m.setFlash("No filters in "+titleCase(string(v.kind)), true)
		return
	}
	filter := cyclable[idx]
	v.composer.SetFilter(filter.Key, filter.Next(v.composer.Query().Filter(filter.Key)))
	v.cursor = 0
}

// otherFilter edits the free-text filter of v, or cycles its second option
// filter when it has none.
func (m *Model) otherFilter(v *viewState) tea.Cmd {
	for _, f := range binding.Filters(v.kind) {
		if !f.FreeText() {
			continue
		}
		filter, composer := f, v.composer
		m.modal = newPrompt(
			titleCase(string(v.kind))+" Filter",
			"Leave blank to disable filter.",
			[]promptField{{label: filter.Label, value: composer.Query().Filter(filter.Key)}},
			func(values []string) tea.Cmd {
				composer.SetFilter(filter.Key, values[0])
				return nil
			},
		)
		v.cursor = 0
		return textinput.Blink
	}
	m.cycleFilter(v, 1)
	return nil
}

// handleActionKey maps record keys to writes and side reads per view.
func (m Model) handleActionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.reg == nil {
		return m, nil
	}
	row, ok := m.selectedRow()

	switch m.current {
	case state.KindDues:
		if !ok {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.MarkPaid):
			return m, m.applyCmd(state.KindDues, row.ID, syncer.ActionMarkPaid, nil)
		case key.Matches(msg, m.keys.Block):
			due, found := m.reg.Dues.Get(row.ID)
			if !found || strings.TrimSpace(due.Vehicle) == "" {
				m.setFlash("Due has no vehicle", true)
				return m, nil
			}
			vehicle, found := binding.DueVehicle(m.reg, due)
			if !found {
				m.setFlash(fmt.Sprintf("Vehicle %s is not in the vehicles list; load Vehicles and try again", due.Vehicle), true)
				return m, m.loadIfNeeded(state.KindVehicles)
			}
			m.modal = &confirmModal{
				title:   "Block Vehicle",
				message: fmt.Sprintf("Block vehicle %s (id %s) for unpaid due %s?", vehicle.Plate, vehicle.ID, row.ID),
				confirm: m.applyCmd(state.KindVehicles, vehicle.EntityID(), syncer.ActionBlock, nil),
			}
			return m, nil
		}

	case state.KindVehicles:
		if !ok {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Block):
			m.modal = &confirmModal{
				title:   "Block Vehicle",
				message: fmt.Sprintf("Block vehicle %s?", row.ID),
				confirm: m.applyCmd(state.KindVehicles, row.ID, syncer.ActionBlock, nil),
			}
			return m, nil
		case key.Matches(msg, m.keys.Approve):
			return m, m.applyCmd(state.KindVehicles, row.ID, syncer.ActionApprove, nil)
		case key.Matches(msg, m.keys.Reject):
			cmd := m.rejectPrompt(state.KindVehicles, row.ID, "Optional.")
			return m, cmd
		case key.Matches(msg, m.keys.ShowQR):
			return m, m.qrCmd(row.ID)
		}

	case state.KindRequests:
		if !ok {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Approve):
			return m, m.applyCmd(state.KindRequests, row.ID, syncer.ActionApprove, nil)
		case key.Matches(msg, m.keys.Reject):
			cmd := m.rejectPrompt(state.KindRequests, row.ID, "A reason is required.")
			return m, cmd
		}

	case state.KindGuards:
		switch {
		case key.Matches(msg, m.keys.AssignGate) && ok:
			id := row.ID
			m.modal = newPrompt("Assign Gate", "Guard "+id, []promptField{{label: "Gate", placeholder: "e.g. North"}},
				func(values []string) tea.Cmd {
					return m.applyCmd(state.KindGuards, id, syncer.ActionAssignGate, syncer.Payload{"gate": values[0]})
				})
			return m, textinput.Blink
		case key.Matches(msg, m.keys.NewGuard):
			m.modal = newPrompt("New Guard", "", []promptField{
				{label: "Name", placeholder: "Full name"},
				{label: "Gate", placeholder: "e.g. North"},
			}, func(values []string) tea.Cmd {
				return m.applyCmd(state.KindGuards, "", syncer.ActionCreate, syncer.Payload{"name": values[0], "gate": values[1]})
			})
			return m, textinput.Blink
		}

	case state.KindUsers:
		if ok && key.Matches(msg, m.keys.Detail) {
			return m, m.detailCmd(state.KindUsers, row.ID)
		}

	case state.KindSettings:
		switch {
		case key.Matches(msg, m.keys.Detail) && ok:
			cmd := m.editSetting(row)
			return m, cmd
		case key.Matches(msg, m.keys.ToggleOCR):
			sel := m.reg.Settings.Snapshot().Selected
			if sel == nil {
				return m, nil
			}
			return m, m.applyCmd(state.KindSettings, "", syncer.ActionUpdate, syncer.Payload{"ocrEnabled": !sel.OCREnabled})
		}

	case state.KindLogs:
		if key.Matches(msg, m.keys.Export) {
			m.setFlash("Exporting logs...", false)
			return m, m.exportCmd()
		}
	}

	return m, nil
}

func (m *Model) rejectPrompt(kind state.Kind, id, hint string) tea.Cmd {
	m.modal = newPrompt("Reject "+titleCase(strings.TrimSuffix(string(kind), "s"))+" "+id, hint,
		[]promptField{{label: "Reason"}},
		func(values []string) tea.Cmd {
			return m.applyCmd(kind, id, syncer.ActionReject, syncer.Payload{"reason": values[0]})
		})
	return textinput.Blink
}

// editSetting prompts for a new value of one settings field.
func (m *Model) editSetting(row binding.Row) tea.Cmd {
	field := row.ID
	current := ""
	if len(row.Cells) > 1 {
		current = row.Cells[1]
	}
	label := field
	if len(row.Cells) > 0 {
		label = row.Cells[0]
	}
	m.modal = newPrompt("Edit Setting", label, []promptField{{label: "Value", value: current}},
		func(values []string) tea.Cmd {
			value, err := settingValue(field, values[0])
			if err != nil {
				return func() tea.Msg {
					return appliedMsg{kind: state.KindSettings, action: syncer.ActionUpdate, err: err}
				}
			}
			return m.applyCmd(state.KindSettings, "", syncer.ActionUpdate, syncer.Payload{field: value})
		})
	return textinput.Blink
}

// settingValue converts prompt text to the JSON type of a settings field.
func settingValue(field, raw string) (any, error) {
	switch field {
	case "qrExpiry":
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("QR expiry must be a positive number of minutes")
		}
		return n, nil
	case "ocrEnabled":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("OCR enabled must be true or false")
		}
		return b, nil
	default:
		return raw, nil
	}
}

// handleApplied reports a finished write in the status line.
func (m *Model) handleApplied(msg appliedMsg) {
	label := actionLabel(msg.action)
	if msg.err != nil {
		m.setFlash(label+" failed: "+errorText(msg.err), true)
		return
	}
	target := msg.id
	if target == "" {
		target = titleCase(string(msg.kind))
	}
	m.setFlash(label+" "+target, false)
	m.clampCursor(m.views[msg.kind])
}

func actionLabel(a syncer.Action) string {
	switch a {
	case syncer.ActionMarkPaid:
		return "Marked paid"
	case syncer.ActionBlock:
		return "Blocked"
	case syncer.ActionApprove:
		return "Approved"
	case syncer.ActionReject:
		return "Rejected"
	case syncer.ActionAssignGate:
		return "Assigned gate"
	case syncer.ActionCreate:
		return "Created"
	case syncer.ActionUpdate:
		return "Updated"
	default:
		return titleCase(string(a))
	}
}

// filterSummary describes the active filters and search of a query.
func filterSummary(kind state.Kind, q query.Query) string {
	var parts []string
	for _, f := range binding.Filters(kind) {
		if v := q.Filter(f.Key); v != "" {
			parts = append(parts, f.Label+"="+v)
		}
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		parts = append(parts, "/"+s)
	}
	return strings.Join(parts, " ")
}
