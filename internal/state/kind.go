package state

import (
	"fmt"
	"strings"
)

// Kind names an entity collection.
type Kind string

const (
	KindVehicles Kind = "vehicles"
	KindUsers    Kind = "users"
	KindGuards   Kind = "guards"
	KindRequests Kind = "requests"
	KindLogs     Kind = "logs"
	KindDues     Kind = "dues"
	KindAudit    Kind = "audit"
	KindSettings Kind = "settings"
	KindMetrics  Kind = "metrics"
)

// Kinds lists every kind in display order.
func Kinds() []Kind {
	return []Kind{
		KindMetrics,
		KindVehicles,
		KindUsers,
		KindGuards,
		KindRequests,
		KindLogs,
		KindDues,
		KindAudit,
		KindSettings,
	}
}

// ParseKind resolves a kind name, accepting a few singular aliases.
func ParseKind(raw string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch name {
	case "vehicle":
		name = string(KindVehicles)
	case "user":
		name = string(KindUsers)
	case "guard":
		name = string(KindGuards)
	case "request":
		name = string(KindRequests)
	case "log":
		name = string(KindLogs)
	case "due":
		name = string(KindDues)
	case "dashboard":
		name = string(KindMetrics)
	}
	for _, k := range Kinds() {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", raw)
}

// SingleRecord reports whether the kind is held in Selected rather than as a
// collection.
func (k Kind) SingleRecord() bool {
	return k == KindSettings || k == KindMetrics
}

// SearchKey returns the list filter that carries free-text search for the
// kind, or "" when the kind has no search box.
func (k Kind) SearchKey() string {
	switch k {
	case KindVehicles, KindUsers:
		return "search"
	case KindLogs:
		return "vehicle"
	default:
		return ""
	}
}

// Meta returns the status information of the kind's store. Single-record
// kinds report the status of their selected record.
func (r *Registry) Meta(k Kind) (Meta, bool) {
	switch k {
	case KindVehicles:
		return r.Vehicles.Meta(), true
	case KindUsers:
		return r.Users.Meta(), true
	case KindGuards:
		return r.Guards.Meta(), true
	case KindRequests:
		return r.Requests.Meta(), true
	case KindLogs:
		return r.Logs.Meta(), true
	case KindDues:
		return r.Dues.Meta(), true
	case KindAudit:
		return r.Audit.Meta(), true
	case KindSettings:
		return r.Settings.SelectedMeta(), true
	case KindMetrics:
		return r.Metrics.SelectedMeta(), true
	default:
		return Meta{}, false
	}
}
