package binding

import (
	"strconv"
	"strings"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/state"
)

// Field is one labelled value of a detail pane.
type Field struct {
	Key   string
	Label string
	Value string
}

// SettingsFields lists the editable settings in display order. Key is the
// wire name used by a settings update.
func SettingsFields(s adminapi.Settings) []Field {
	return []Field{
		{Key: "qrExpiry", Label: "QR expiry (minutes)", Value: strconv.Itoa(s.QRExpiry)},
		{Key: "ocrEnabled", Label: "OCR enabled", Value: strconv.FormatBool(s.OCREnabled)},
		{Key: "notificationTemplate", Label: "Notification template", Value: s.NotificationTemplate},
	}
}

// DueVehicle finds the cached vehicle a due refers to. The due's vehicle
// field is matched as a vehicle id first, then as a plate.
func DueVehicle(reg *state.Registry, due adminapi.Due) (adminapi.Vehicle, bool) {
	ref := strings.TrimSpace(due.Vehicle)
	if ref == "" {
		return adminapi.Vehicle{}, false
	}
	if v, ok := reg.Vehicles.Get(ref); ok {
		return v, true
	}
	for _, v := range reg.Vehicles.Snapshot().Items {
		if strings.EqualFold(strings.TrimSpace(v.Plate), ref) {
			return v, true
		}
	}
	return adminapi.Vehicle{}, false
}

// Summary returns the dashboard counters, or nil before the first load.
func Summary(reg *state.Registry) []Field {
	snap := reg.Metrics.Snapshot()
	if snap.Selected == nil {
		return nil
	}
	m := snap.Selected
	return []Field{
		{Key: "totalVehicles", Label: "Total vehicles", Value: strconv.Itoa(m.TotalVehicles)},
		{Key: "currentlyInside", Label: "Currently inside", Value: strconv.Itoa(m.CurrentlyInside)},
		{Key: "visitorsToday", Label: "Visitors today", Value: strconv.Itoa(m.VisitorsToday)},
		{Key: "pendingRequests", Label: "Pending requests", Value: strconv.Itoa(m.PendingRequests)},
	}
}

// Detail describes the record id of kind. The users kind prefers the
// selected record when it matches, since the detail read carries more than a
// list row.
func Detail(reg *state.Registry, kind state.Kind, id string) []Field {
	if kind == state.KindUsers {
		if sel := reg.Users.Snapshot().Selected; sel != nil && sel.EntityID() == id {
			return userFields(*sel)
		}
	}
	if kind == state.KindRequests {
		if r, ok := reg.Requests.Get(id); ok {
			fields := rowFields(reg, kind, id)
			if r.Reason != "" {
				fields = append(fields, Field{Key: "reason", Label: "Reason", Value: r.Reason})
			}
			return fields
		}
		return nil
	}
	return rowFields(reg, kind, id)
}

func userFields(u adminapi.User) []Field {
	fields := []Field{
		{Key: "id", Label: "ID", Value: u.ID.String()},
		{Key: "name", Label: "Name", Value: u.Name},
		{Key: "email", Label: "Email", Value: u.Email},
		{Key: "role", Label: "Role", Value: u.Role},
	}
	if u.Status != "" {
		fields = append(fields, Field{Key: "status", Label: "Status", Value: u.Status})
	}
	return fields
}

func rowFields(reg *state.Registry, kind state.Kind, id string) []Field {
	t, _, err := Project(reg, kind)
	if err != nil {
		return nil
	}
	i := t.Index(id)
	if i < 0 {
		return nil
	}
	fields := make([]Field, 0, len(t.Columns))
	for c, col := range t.Columns {
		fields = append(fields, Field{Key: col.Key, Label: col.Title, Value: cell(t.Rows[i], c)})
	}
	return fields
}
