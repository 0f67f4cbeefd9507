package adminapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// ID is an entity identifier. The backend emits integer ids while older
// endpoints return strings, so both decode to the same string form.
type ID string

// UnmarshalJSON accepts JSON strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", trimmed, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Vehicle mirrors a row of /api/admin/vehicles.
type Vehicle struct {
	ID     ID     `json:"id"`
	Plate  string `json:"plate"`
	Owner  string `json:"owner"`
	Status string `json:"status"`
}

// EntityID implements state.Entity.
func (v Vehicle) EntityID() string { return v.ID.String() }

// User mirrors a row of /api/admin/users and the user detail payload.
type User struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status,omitempty"`
}

// EntityID implements state.Entity.
func (u User) EntityID() string { return u.ID.String() }

// Guard mirrors a row of /api/admin/guards.
type Guard struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Gate   string `json:"gate"`
	Status string `json:"status"`
}

// EntityID implements state.Entity.
func (g Guard) EntityID() string { return g.ID.String() }

// NewGuard is the creation payload for POST /api/admin/guards.
type NewGuard struct {
	Name string `json:"name"`
	Gate string `json:"gate"`
}

// Request is a pending vehicle access request.
type Request struct {
	ID      ID     `json:"id"`
	Vehicle string `json:"vehicle"`
	Owner   string `json:"owner"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// EntityID implements state.Entity.
func (r Request) EntityID() string { return r.ID.String() }

// AccessLog is one gate in/out event.
type AccessLog struct {
	ID      ID     `json:"id"`
	Time    string `json:"time"`
	Vehicle string `json:"vehicle"`
	Guard   string `json:"guard"`
	Action  string `json:"action"`
}

// EntityID implements state.Entity.
func (l AccessLog) EntityID() string { return l.ID.String() }

// ParsedTime returns the event time when it parses.
func (l AccessLog) ParsedTime() time.Time { return parseTime(l.Time) }

// Due is an outstanding or settled parking due.
type Due struct {
	ID      ID      `json:"id"`
	Vehicle string  `json:"vehicle"`
	Amount  float64 `json:"amount"`
	DueDate string  `json:"dueDate"`
	Status  string  `json:"status"`
}

// EntityID implements state.Entity.
func (d Due) EntityID() string { return d.ID.String() }

// AuditEntry records an administrative action.
type AuditEntry struct {
	ID      ID     `json:"id"`
	Time    string `json:"time"`
	User    string `json:"user"`
	Action  string `json:"action"`
	Details string `json:"details"`
}

// EntityID implements state.Entity.
func (a AuditEntry) EntityID() string { return a.ID.String() }

// SettingsID is the fixed identity of the global settings record.
const SettingsID = "global"

// Settings holds the global system settings.
type Settings struct {
	QRExpiry             int    `json:"qrExpiry"`
	OCREnabled           bool   `json:"ocrEnabled"`
	NotificationTemplate string `json:"notificationTemplate"`
}

// EntityID implements state.Entity.
func (Settings) EntityID() string { return SettingsID }

// MetricsID is the fixed identity of the dashboard summary record.
const MetricsID = "summary"

// Metrics is the dashboard summary returned by /api/admin/metrics.
type Metrics struct {
	TotalVehicles   int             `json:"totalVehicles"`
	CurrentlyInside int             `json:"currentlyInside"`
	VisitorsToday   int             `json:"visitorsToday"`
	PendingRequests int             `json:"pendingRequests"`
	RecentRequests  []RecentRequest `json:"recentRequests"`
}

// EntityID implements state.Entity.
func (Metrics) EntityID() string { return MetricsID }

// RecentRequest is a dashboard row.
type RecentRequest struct {
	ID      ID     `json:"id"`
	Vehicle string `json:"vehicle"`
	Status  string `json:"status"`
}

// UnmarshalJSON accepts both the camelCase keys the admin panel expects and
// the snake_case keys the backend actually emits.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw struct {
		TotalVehicles    *int            `json:"totalVehicles"`
		TotalVehiclesS   *int            `json:"total_vehicles"`
		CurrentlyInside  *int            `json:"currentlyInside"`
		CurrentlyInsideS *int            `json:"currently_inside"`
		VisitorsToday    *int            `json:"visitorsToday"`
		VisitorsTodayS   *int            `json:"visitors_today"`
		PendingRequests  *int            `json:"pendingRequests"`
		PendingRequestsS *int            `json:"pending_requests"`
		RecentRequests   []RecentRequest `json:"recentRequests"`
		RecentRequestsS  []RecentRequest `json:"recent_requests"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.TotalVehicles = firstInt(raw.TotalVehicles, raw.TotalVehiclesS)
	m.CurrentlyInside = firstInt(raw.CurrentlyInside, raw.CurrentlyInsideS)
	m.VisitorsToday = firstInt(raw.VisitorsToday, raw.VisitorsTodayS)
	m.PendingRequests = firstInt(raw.PendingRequests, raw.PendingRequestsS)
	m.RecentRequests = raw.RecentRequests
	if m.RecentRequests == nil {
		m.RecentRequests = raw.RecentRequestsS
	}
	return nil
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
