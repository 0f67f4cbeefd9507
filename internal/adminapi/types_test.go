package adminapi

import (
	"encoding/json"
	"testing"
	"time"
)

func TestID_DecodesStringsNumbersAndNull(t *testing.T) {
	cases := []struct {
		in   string
		want ID
	}{
		{`"d1"`, "d1"},
		{`" 42 "`, "42"},
		{`42`, "42"},
		{`null`, ""},
	}
	for _, tc := range cases {
		var id ID
		if err := json.Unmarshal([]byte(tc.in), &id); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tc.in, err)
		}
		if id != tc.want {
			t.Fatalf("Unmarshal(%s) = %q, want %q", tc.in, id, tc.want)
		}
	}

	var id ID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Fatalf("Unmarshal(object) returned nil error, want error")
	}
}

func TestMetrics_PrefersCamelCase(t *testing.T) {
	var m Metrics
	payload := `{"totalVehicles":5,"total_vehicles":9,"visitorsToday":4,"recentRequests":[{"id":"r1","vehicle":"V","status":"pending"}]}`
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if m.TotalVehicles != 5 || m.VisitorsToday != 4 {
		t.Fatalf("Metrics = %#v, want camelCase values", m)
	}
	if len(m.RecentRequests) != 1 || m.RecentRequests[0].ID != "r1" {
		t.Fatalf("RecentRequests = %#v, want one row", m.RecentRequests)
	}
}

func TestSingleRecordIdentity(t *testing.T) {
	if (Settings{}).EntityID() != SettingsID {
		t.Fatalf("Settings EntityID = %q, want %q", (Settings{}).EntityID(), SettingsID)
	}
	if (Metrics{}).EntityID() != MetricsID {
		t.Fatalf("Metrics EntityID = %q, want %q", (Metrics{}).EntityID(), MetricsID)
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if (AccessLog{Time: "2026-03-01T08:15:00Z"}).ParsedTime().IsZero() {
		t.Fatalf("ParsedTime should parse RFC3339")
	}
	got := (AccessLog{Time: "2026-03-01 08:15:00"}).ParsedTime()
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("ParsedTime = %v, want 2026-03-01", got)
	}
	if !(AccessLog{Time: "yesterday"}).ParsedTime().IsZero() {
		t.Fatalf("ParsedTime should return zero for unknown layouts")
	}
}
