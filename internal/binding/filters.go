package binding

import "github.com/five82/gatehouse/internal/state"

// FilterSpec is a server-side filter a view can cycle through. An empty
// option means the filter is off.
type FilterSpec struct {
	Key     string
	Label   string
	Options []string
}

// Filters returns the filters offered for kind.
func Filters(kind state.Kind) []FilterSpec {
	switch kind {
	case state.KindVehicles:
		return []FilterSpec{{Key: "status", Label: "Status", Options: []string{"", "active", "blocked", "pending"}}}
	case state.KindRequests:
		return []FilterSpec{{Key: "status", Label: "Status", Options: []string{"", "pending", "approved", "rejected"}}}
	case state.KindLogs:
		return []FilterSpec{
			{Key: "date", Label: "Date", Options: []string{"", "today", "week"}},
			{Key: "guard", Label: "Guard"},
		}
	case state.KindDues:
		return []FilterSpec{{Key: "status", Label: "Status", Options: []string{"", "pending", "paid"}}}
	case state.KindAudit:
		return []FilterSpec{
			{Key: "date", Label: "Date", Options: []string{"", "today", "week"}},
			{Key: "action", Label: "Action", Options: []string{"", "create", "update"}},
		}
	default:
		return nil
	}
}

// Next returns the option after current, wrapping to "off". Free-text
// filters (no options) always return "".
func (f FilterSpec) Next(current string) string {
	if len(f.Options) == 0 {
		return ""
	}
	for i, opt := range f.Options {
		if opt == current {
			return f.Options[(i+1)%len(f.Options)]
		}
	}
	return f.Options[0]
}

// FreeText reports whether the filter takes typed input.
func (f FilterSpec) FreeText() bool { return len(f.Options) == 0 }
