package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/config"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
)

// fakeAdmin serves reads from fixed data and records writes.
type fakeAdmin struct {
	mu        sync.Mutex
	dues      []adminapi.Due
	requests  []adminapi.Request
	writeResp json.RawMessage
	writes    []string
}

func (f *fakeAdmin) ListVehicles(context.Context, adminapi.Params) ([]adminapi.Vehicle, error) {
	return nil, nil
}
func (f *fakeAdmin) ListUsers(context.Context, adminapi.Params) ([]adminapi.User, error) {
	return nil, nil
}
func (f *fakeAdmin) ListGuards(context.Context, adminapi.Params) ([]adminapi.Guard, error) {
	return nil, nil
}
func (f *fakeAdmin) ListRequests(context.Context, adminapi.Params) ([]adminapi.Request, error) {
	return f.requests, nil
}
func (f *fakeAdmin) ListLogs(context.Context, adminapi.Params) ([]adminapi.AccessLog, error) {
	return nil, nil
}
func (f *fakeAdmin) ListDues(_ context.Context, p adminapi.Params) ([]adminapi.Due, error) {
	var out []adminapi.Due
	for _, d := range f.dues {
		if p["status"] == "" || p["status"] == d.Status {
			out = append(out, d)
		}
	}
	return out, nil
}
func (f *fakeAdmin) ListAudit(context.Context, adminapi.Params) ([]adminapi.AuditEntry, error) {
	return nil, nil
}
func (f *fakeAdmin) GetUser(context.Context, string) (adminapi.User, error) {
	return adminapi.User{}, errors.New("not found")
}
func (f *fakeAdmin) GetSettings(context.Context) (adminapi.Settings, error) {
	return adminapi.Settings{QRExpiry: 10}, nil
}
func (f *fakeAdmin) GetMetrics(context.Context) (adminapi.Metrics, error) {
	return adminapi.Metrics{TotalVehicles: 42}, nil
}
func (f *fakeAdmin) VehicleQR(context.Context, string) (string, error) { return "QR", nil }
func (f *fakeAdmin) ExportLogs(context.Context, adminapi.Params) ([]byte, error) {
	return []byte("time,vehicle\n"), nil
}

func (f *fakeAdmin) write(call string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, call)
	return f.writeResp, nil
}

func (f *fakeAdmin) MarkDuePaid(_ context.Context, id string) (json.RawMessage, error) {
	return f.write("paid " + id)
}
func (f *fakeAdmin) BlockVehicle(_ context.Context, id string) (json.RawMessage, error) {
	return f.write("block " + id)
}
func (f *fakeAdmin) ApproveVehicle(_ context.Context, id string) (json.RawMessage, error) {
	return f.write("approve vehicle " + id)
}
func (f *fakeAdmin) RejectVehicle(_ context.Context, id, reason string) (json.RawMessage, error) {
	return f.write("reject vehicle " + id)
}
func (f *fakeAdmin) ApproveRequest(_ context.Context, id string) (json.RawMessage, error) {
	return f.write("approve " + id)
}
func (f *fakeAdmin) RejectRequest(_ context.Context, id, reason string) (json.RawMessage, error) {
	return f.write("reject " + id + " " + reason)
}
func (f *fakeAdmin) AssignGate(_ context.Context, id, gate string) (json.RawMessage, error) {
	return f.write("assign " + id + " " + gate)
}
func (f *fakeAdmin) CreateGuard(_ context.Context, g adminapi.NewGuard) (json.RawMessage, error) {
	return f.write("create " + g.Name)
}
func (f *fakeAdmin) UpdateSettings(context.Context, map[string]any) (json.RawMessage, error) {
	return f.write("settings")
}

func (f *fakeAdmin) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

type fakeTimer struct {
	clock   *fakeClock
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) query.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Fire() {
	c.mu.Lock()
	var due []func()
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func manyDues(n int) []adminapi.Due {
	out := make([]adminapi.Due, n)
	for i := range out {
		out[i] = adminapi.Due{
			ID:      adminapi.ID(fmt.Sprintf("d%d", i+1)),
			Vehicle: fmt.Sprintf("CAR-%d", i+1),
			Amount:  float64(i + 1),
			Status:  "pending",
		}
	}
	return out
}

func newTestModel(t *testing.T, api *fakeAdmin, view state.Kind, clock *fakeClock) Model {
	t.Helper()
	reg := state.NewRegistry()
	coord := syncer.NewCoordinator(api, reg)
	opts := Options{
		Context:     context.Background(),
		Coordinator: coord,
		Applier:     syncer.NewApplier(api, coord),
		Config:      config.Config{ItemsPerPage: 10, ExportDir: t.TempDir()},
		PrefsPath:   t.TempDir() + "/prefs.toml",
		InitialView: view,
	}
	if clock != nil {
		opts.AfterFunc = clock.AfterFunc
	}
	m := New(opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 30})
	return next.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

// feed hands msg to Update.
func feed(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func drain(m Model) []queryMsg {
	var out []queryMsg
	for {
		select {
		case q := <-m.queries:
			out = append(out, q)
		default:
			return out
		}
	}
}

func seedDues(m Model, dues []adminapi.Due) {
	m.reg.Dues.Succeed(m.reg.Dues.Begin(), dues)
}

func TestFilterKeyEmitsQuery(t *testing.T) {
	m := newTestModel(t, &fakeAdmin{}, state.KindDues, nil)

	m, _ = press(t, m, "f")
	got := drain(m)
	require.Len(t, got, 1)
	assert.Equal(t, state.KindDues, got[0].kind)
	assert.Equal(t, "pending", got[0].q.Filter("status"))
	assert.Equal(t, 1, got[0].q.Page)

	// The emitted query is loaded by the update loop.
	next, cmd := m.Update(got[0])
	require.NotNil(t, cmd)
	_ = next
}

func TestPageKeysDoNotEmit(t *testing.T) {
	m := newTestModel(t, &fakeAdmin{}, state.KindDues, nil)
	seedDues(m, manyDues(25))

	m, _ = press(t, m, "]")
	assert.Empty(t, drain(m))

	pv := m.page(m.view())
	assert.Equal(t, 2, pv.page)
	assert.Equal(t, 3, pv.pages)
	require.Len(t, pv.table.Rows, 10)
	assert.Equal(t, "d11", pv.table.Rows[0].ID)
	assert.Equal(t, "d20", pv.table.Rows[9].ID)

	// Past the last page nothing moves.
	m, _ = press(t, m, "]")
	m, _ = press(t, m, "]")
	assert.Equal(t, 3, m.page(m.view()).page)
	assert.Len(t, m.page(m.view()).table.Rows, 5)
}

func TestSearchIsDebounced(t *testing.T) {
	clock := &fakeClock{}
	m := newTestModel(t, &fakeAdmin{}, state.KindVehicles, clock)

	m, _ = press(t, m, "/")
	require.True(t, m.searching)
	for _, r := range []string{"a", "b", "c"} {
		m, _ = press(t, m, r)
	}
	assert.Empty(t, drain(m), "nothing emitted before the quiet window")

	clock.Fire()
	got := drain(m)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].q.Search)
	assert.Equal(t, "abc", got[0].q.Params(state.KindVehicles.SearchKey())["search"])

	m, _ = press(t, m, "enter")
	assert.False(t, m.searching)
}

func TestSearchUnavailableOnDues(t *testing.T) {
	m := newTestModel(t, &fakeAdmin{}, state.KindDues, nil)
	m, _ = press(t, m, "/")
	assert.False(t, m.searching)
	assert.True(t, m.flash.isErr)
}

func TestMarkPaidUpdatesStore(t *testing.T) {
	api := &fakeAdmin{writeResp: json.RawMessage(`{"id":"d1","status":"paid"}`)}
	m := newTestModel(t, api, state.KindDues, nil)
	seedDues(m, manyDues(3))

	m, cmd := press(t, m, "p")
	m = run(t, m, cmd)

	assert.Equal(t, []string{"paid d1"}, api.calls())
	due, ok := m.reg.Dues.Get("d1")
	require.True(t, ok)
	assert.Equal(t, "paid", due.Status)
	assert.Contains(t, m.flash.text, "Marked paid d1")
	assert.False(t, m.flash.isErr)
}

func TestBlockFromDuesTargetsVehicle(t *testing.T) {
	api := &fakeAdmin{writeResp: json.RawMessage(`{"id":"v2","status":"blocked"}`)}
	m := newTestModel(t, api, state.KindDues, nil)
	seedDues(m, manyDues(3))
	m.reg.Vehicles.Succeed(m.reg.Vehicles.Begin(), []adminapi.Vehicle{
		{ID: "v1", Plate: "CAR-1", Status: "active"},
		{ID: "v2", Plate: "CAR-2", Status: "active"},
	})

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "b")
	require.NotNil(t, m.modal)
	assert.Contains(t, m.View(), "CAR-2")

	m, cmd := press(t, m, "enter")
	assert.Nil(t, m.modal)
	m = run(t, m, cmd)

	assert.Equal(t, []string{"block v2"}, api.calls())
	assert.Contains(t, m.flash.text, "Blocked v2")
	got, _ := m.reg.Vehicles.Get("v2")
	assert.Equal(t, "blocked", got.Status)
}

func TestBlockFromDuesNeedsKnownVehicle(t *testing.T) {
	api := &fakeAdmin{}
	m := newTestModel(t, api, state.KindDues, nil)
	seedDues(m, manyDues(2))

	m, cmd := press(t, m, "b")
	assert.Nil(t, m.modal)
	assert.True(t, m.flash.isErr)
	assert.Contains(t, m.flash.text, "CAR-1")
	assert.NotNil(t, cmd, "vehicles are loaded so the block can be retried")
	assert.Empty(t, api.calls())
}

func TestRejectRequestNeedsReason(t *testing.T) {
	api := &fakeAdmin{}
	m := newTestModel(t, api, state.KindRequests, nil)
	m.reg.Requests.Succeed(m.reg.Requests.Begin(), []adminapi.Request{{ID: "r1", Vehicle: "ABC-1", Status: "pending"}})

	m, _ = press(t, m, "R")
	require.NotNil(t, m.modal)

	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)

	assert.Empty(t, api.calls())
	assert.True(t, m.flash.isErr)
	assert.Contains(t, m.flash.text, "reason is required")
}

func TestRejectRequestSendsReason(t *testing.T) {
	api := &fakeAdmin{writeResp: json.RawMessage(`{"id":"r1","status":"rejected"}`)}
	m := newTestModel(t, api, state.KindRequests, nil)
	m.reg.Requests.Succeed(m.reg.Requests.Begin(), []adminapi.Request{{ID: "r1", Vehicle: "ABC-1", Status: "pending"}})

	m, _ = press(t, m, "R")
	for _, r := range "late" {
		m, _ = press(t, m, string(r))
	}
	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)

	assert.Equal(t, []string{"reject r1 late"}, api.calls())
	got, _ := m.reg.Requests.Get("r1")
	assert.Equal(t, "rejected", got.Status)
}

func TestViewSwitchLoadsOnce(t *testing.T) {
	api := &fakeAdmin{dues: manyDues(2)}
	m := newTestModel(t, api, state.KindMetrics, nil)

	// Dues is the seventh view.
	m, cmd := press(t, m, "7")
	assert.Equal(t, state.KindDues, m.current)
	require.NotNil(t, cmd)

	require.NoError(t, m.coord.Load(context.Background(), state.KindDues, m.view().composer.Query()))
	assert.Nil(t, m.loadIfNeeded(state.KindDues), "ready stores are not reloaded on switch")

	m, _ = press(t, m, "esc")
	assert.Equal(t, state.KindMetrics, m.current)
}

func TestLoadOrderFollowsIssueOrder(t *testing.T) {
	api := &fakeAdmin{dues: manyDues(3)}
	m := newTestModel(t, api, state.KindDues, nil)

	paid := query.New()
	paid.Filters["status"] = "paid"
	pending := query.New()
	pending.Filters["status"] = "pending"

	first := m.loadCmd(state.KindDues, paid)
	second := m.loadCmd(state.KindDues, pending)

	// The later query answers first; the earlier answer arrives stale.
	m = feed(m, second())
	msg := first()
	loaded, ok := msg.(loadedMsg)
	require.True(t, ok)
	assert.ErrorIs(t, loaded.err, syncer.ErrSuperseded)
	m = feed(m, msg)

	assert.Len(t, m.reg.Dues.Snapshot().Items, 3)
	assert.Equal(t, "pending", m.coord.LastQuery(state.KindDues).Filter("status"))
}

func TestFullQueryQueueLogsDrop(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	queries := make(chan queryMsg, 1)
	v := newViewState(state.KindDues, queries, 0, nil, logger)

	v.composer.SetFilter("status", "pending")
	assert.Empty(t, buf.String())
	v.composer.SetFilter("status", "paid")

	assert.Len(t, queries, 1)
	assert.Equal(t, "pending", (<-queries).q.Filter("status"))
	assert.Contains(t, buf.String(), "query dropped")
	assert.Contains(t, buf.String(), "kind=dues")
}

func TestRenderList(t *testing.T) {
	m := newTestModel(t, &fakeAdmin{}, state.KindDues, nil)
	seedDues(m, manyDues(12))

	out := m.View()
	assert.Contains(t, out, "Dues (12)")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "CAR-1")
	assert.NotContains(t, out, "CAR-11")

	m.reg.Dues.Fail(m.reg.Dues.Begin(), "gateway down")
	out = m.View()
	assert.Contains(t, out, "gateway down")
	assert.Contains(t, out, "CAR-1", "previous rows stay visible after a failure")
}

func TestRenderDashboard(t *testing.T) {
	m := newTestModel(t, &fakeAdmin{}, state.KindMetrics, nil)
	require.NoError(t, m.coord.LoadSelected(context.Background(), state.KindMetrics, ""))

	out := m.View()
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "Total vehicles")
	assert.Contains(t, out, "Recent Requests")
}

func TestSettingValue(t *testing.T) {
	v, err := settingValue("qrExpiry", "15")
	require.NoError(t, err)
	assert.Equal(t, 15, v)

	_, err = settingValue("qrExpiry", "soon")
	assert.Error(t, err)

	v, err = settingValue("ocrEnabled", "false")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = settingValue("notificationTemplate", "Hello {name}")
	require.NoError(t, err)
	assert.Equal(t, "Hello {name}", v)
}

func TestColumnWidthsFitPane(t *testing.T) {
	m := newTestModel(t, &fakeAdmin{}, state.KindDues, nil)
	cols := m.page(m.view()).table.Columns

	for _, width := range []int{30, 60, 120} {
		widths := columnWidths(cols, width)
		total := len(widths) - 1
		for _, w := range widths {
			total += w
		}
		if width >= 60 {
			assert.Equal(t, width, total, "width %d", width)
		}
		for _, w := range widths {
			assert.GreaterOrEqual(t, w, 3)
		}
	}
	assert.True(t, strings.HasPrefix(viewTitle(state.KindMetrics), "Dash"))
}

func TestDashboardRefreshLoadsEveryView(t *testing.T) {
	api := &fakeAdmin{dues: manyDues(2)}
	m := newTestModel(t, api, state.KindMetrics, nil)

	m, cmd := press(t, m, "r")
	m = run(t, m, cmd)

	assert.Equal(t, "Refreshed all views", m.flash.text)
	for _, kind := range state.Kinds() {
		meta, ok := m.reg.Meta(kind)
		require.True(t, ok)
		assert.Equal(t, state.StatusReady, meta.Status, kind)
	}
	assert.Equal(t, 2, m.reg.Dues.Meta().Count)
}
