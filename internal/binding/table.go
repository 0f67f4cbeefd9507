package binding

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
)

// Column describes one table column.
type Column struct {
	Key   string
	Title string
	Width int
}

// Row is one projected record. Status drives row colouring.
type Row struct {
	ID     string
	Cells  []string
	Status string
}

// Table is a projected collection.
type Table struct {
	Kind    state.Kind
	Columns []Column
	Rows    []Row
}

// Columns returns the column layout of kind.
func Columns(kind state.Kind) []Column {
	switch kind {
	case state.KindVehicles:
		return []Column{{"id", "ID", 6}, {"plate", "Plate", 12}, {"owner", "Owner", 20}, {"status", "Status", 10}}
	case state.KindUsers:
		return []Column{{"id", "ID", 6}, {"name", "Name", 20}, {"email", "Email", 26}, {"role", "Role", 10}}
	case state.KindGuards:
		return []Column{{"id", "ID", 6}, {"name", "Name", 20}, {"gate", "Gate", 12}, {"status", "Status", 10}}
	case state.KindRequests:
		return []Column{{"id", "ID", 6}, {"vehicle", "Vehicle", 12}, {"owner", "Owner", 20}, {"status", "Status", 10}}
	case state.KindLogs:
		return []Column{{"time", "Time", 19}, {"vehicle", "Vehicle", 12}, {"guard", "Guard", 16}, {"action", "Action", 6}}
	case state.KindDues:
		return []Column{{"id", "ID", 6}, {"vehicle", "Vehicle", 12}, {"amount", "Amount", 10}, {"dueDate", "Due", 10}, {"status", "Status", 8}}
	case state.KindAudit:
		return []Column{{"time", "Time", 19}, {"user", "User", 14}, {"action", "Action", 8}, {"details", "Details", 30}}
	case state.KindSettings:
		return []Column{{"field", "Setting", 22}, {"value", "Value", 40}}
	case state.KindMetrics:
		return []Column{{"id", "ID", 6}, {"vehicle", "Vehicle", 12}, {"status", "Status", 10}}
	default:
		return nil
	}
}

// Project builds the table of kind from the registry. Single-record kinds
// project their selected record: settings as one row per field, metrics as
// the recent requests list.
func Project(reg *state.Registry, kind state.Kind) (Table, state.Meta, error) {
	t := Table{Kind: kind, Columns: Columns(kind)}
	switch kind {
	case state.KindVehicles:
		snap := reg.Vehicles.Snapshot()
		for _, v := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: v.EntityID(), Status: v.Status, Cells: []string{v.ID.String(), v.Plate, v.Owner, v.Status}})
		}
		return t, snap.Meta, nil
	case state.KindUsers:
		snap := reg.Users.Snapshot()
		for _, u := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: u.EntityID(), Status: u.Status, Cells: []string{u.ID.String(), u.Name, u.Email, u.Role}})
		}
		return t, snap.Meta, nil
	case state.KindGuards:
		snap := reg.Guards.Snapshot()
		for _, g := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: g.EntityID(), Status: g.Status, Cells: []string{g.ID.String(), g.Name, g.Gate, g.Status}})
		}
		return t, snap.Meta, nil
	case state.KindRequests:
		snap := reg.Requests.Snapshot()
		for _, r := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: r.EntityID(), Status: r.Status, Cells: []string{r.ID.String(), r.Vehicle, r.Owner, r.Status}})
		}
		return t, snap.Meta, nil
	case state.KindLogs:
		snap := reg.Logs.Snapshot()
		for _, l := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: l.EntityID(), Status: l.Action, Cells: []string{formatTime(l), l.Vehicle, l.Guard, l.Action}})
		}
		return t, snap.Meta, nil
	case state.KindDues:
		snap := reg.Dues.Snapshot()
		for _, d := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: d.EntityID(), Status: d.Status, Cells: []string{d.ID.String(), d.Vehicle, FormatAmount(d.Amount), d.DueDate, d.Status}})
		}
		return t, snap.Meta, nil
	case state.KindAudit:
		snap := reg.Audit.Snapshot()
		for _, a := range snap.Items {
			t.Rows = append(t.Rows, Row{ID: a.EntityID(), Status: a.Action, Cells: []string{a.Time, a.User, a.Action, a.Details}})
		}
		return t, snap.Meta, nil
	case state.KindSettings:
		snap := reg.Settings.Snapshot()
		if snap.Selected != nil {
			for _, f := range SettingsFields(*snap.Selected) {
				t.Rows = append(t.Rows, Row{ID: f.Key, Cells: []string{f.Label, f.Value}})
			}
		}
		return t, snap.SelectedMeta, nil
	case state.KindMetrics:
		snap := reg.Metrics.Snapshot()
		if snap.Selected != nil {
			for _, r := range snap.Selected.RecentRequests {
				t.Rows = append(t.Rows, Row{ID: r.ID.String(), Status: r.Status, Cells: []string{r.ID.String(), r.Vehicle, r.Status}})
			}
		}
		return t, snap.SelectedMeta, nil
	default:
		return t, state.Meta{}, fmt.Errorf("unknown kind %q", kind)
	}
}

// Sort orders rows by column col, numerically when both cells parse as
// numbers. The sort is stable so equal keys keep server order.
func (t Table) Sort(col int, desc bool) Table {
	if col < 0 || col >= len(t.Columns) {
		return t
	}
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := cell(rows[i], col), cell(rows[j], col)
		if desc {
			a, b = b, a
		}
		return less(a, b)
	})
	t.Rows = rows
	return t
}

// Page returns the rows visible on page.
func (t Table) Page(page, perPage int) Table {
	t.Rows = query.Paginate(t.Rows, page, perPage)
	return t
}

// Index returns the position of the row with id, or -1.
func (t Table) Index(id string) int {
	for i, r := range t.Rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cell(r Row, col int) string {
	if col < len(r.Cells) {
		return r.Cells[col]
	}
	return ""
}

func less(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

// FormatAmount renders a due amount with two decimals.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func formatTime(l adminapi.AccessLog) string {
	if t := l.ParsedTime(); !t.IsZero() {
		return t.Local().Format("2006-01-02 15:04:05")
	}
	return l.Time
}
