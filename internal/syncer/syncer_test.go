package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
)

// fakeAPI answers every call from its fields. Dues reads can be held open
// through gate to control completion order.
type fakeAPI struct {
	mu sync.Mutex

	dues      []adminapi.Due
	duesErr   error
	duesCalls []adminapi.Params
	gates     map[string]chan struct{}

	vehicles []adminapi.Vehicle
	guards   []adminapi.Guard
	settings adminapi.Settings
	metrics  adminapi.Metrics
	user     adminapi.User
	qr       string
	export   []byte

	writeResp  json.RawMessage
	writeErr   error
	writeCalls []string
}

func (f *fakeAPI) ListVehicles(ctx context.Context, p adminapi.Params) ([]adminapi.Vehicle, error) {
	return f.vehicles, nil
}
func (f *fakeAPI) ListUsers(ctx context.Context, p adminapi.Params) ([]adminapi.User, error) {
	return nil, nil
}
func (f *fakeAPI) ListGuards(ctx context.Context, p adminapi.Params) ([]adminapi.Guard, error) {
	return f.guards, nil
}
func (f *fakeAPI) ListRequests(ctx context.Context, p adminapi.Params) ([]adminapi.Request, error) {
	return nil, nil
}
func (f *fakeAPI) ListLogs(ctx context.Context, p adminapi.Params) ([]adminapi.AccessLog, error) {
	return nil, nil
}
func (f *fakeAPI) ListAudit(ctx context.Context, p adminapi.Params) ([]adminapi.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAPI) ListDues(ctx context.Context, p adminapi.Params) ([]adminapi.Due, error) {
	f.mu.Lock()
	f.duesCalls = append(f.duesCalls, p)
	gate := f.gates[p["status"]]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duesErr != nil {
		return nil, f.duesErr
	}
	var out []adminapi.Due
	for _, d := range f.dues {
		if p["status"] == "" || p["status"] == d.Status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetUser(ctx context.Context, id string) (adminapi.User, error) { return f.user, nil }
func (f *fakeAPI) GetSettings(ctx context.Context) (adminapi.Settings, error) {
	return f.settings, nil
}
func (f *fakeAPI) GetMetrics(ctx context.Context) (adminapi.Metrics, error) { return f.metrics, nil }
func (f *fakeAPI) VehicleQR(ctx context.Context, id string) (string, error) { return f.qr, nil }
func (f *fakeAPI) ExportLogs(ctx context.Context, p adminapi.Params) ([]byte, error) {
	return f.export, nil
}

func (f *fakeAPI) write(call string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls = append(f.writeCalls, call)
	return f.writeResp, f.writeErr
}

func (f *fakeAPI) MarkDuePaid(ctx context.Context, id string) (json.RawMessage, error) {
	return f.write("paid " + id)
}
func (f *fakeAPI) BlockVehicle(ctx context.Context, id string) (json.RawMessage, error) {
	return f.write("block " + id)
}
func (f *fakeAPI) ApproveVehicle(ctx context.Context, id string) (json.RawMessage, error) {
	return f.write("approve vehicle " + id)
}
func (f *fakeAPI) RejectVehicle(ctx context.Context, id, reason string) (json.RawMessage, error) {
	return f.write("reject vehicle " + id + " " + reason)
}
func (f *fakeAPI) ApproveRequest(ctx context.Context, id string) (json.RawMessage, error) {
	return f.write("approve " + id)
}
func (f *fakeAPI) RejectRequest(ctx context.Context, id, reason string) (json.RawMessage, error) {
	return f.write("reject " + id + " " + reason)
}
func (f *fakeAPI) AssignGate(ctx context.Context, id, gate string) (json.RawMessage, error) {
	return f.write("assign " + id + " " + gate)
}
func (f *fakeAPI) CreateGuard(ctx context.Context, g adminapi.NewGuard) (json.RawMessage, error) {
	return f.write("create " + g.Name)
}
func (f *fakeAPI) UpdateSettings(ctx context.Context, fields map[string]any) (json.RawMessage, error) {
	return f.write("settings")
}

func sampleDues() []adminapi.Due {
	return []adminapi.Due{
		{ID: "d1", Vehicle: "ABC-1", Amount: 10, DueDate: "2026-01-01", Status: "pending"},
		{ID: "d2", Vehicle: "XYZ-2", Amount: 20, DueDate: "2026-02-01", Status: "pending"},
		{ID: "d3", Vehicle: "JKL-3", Amount: 30, DueDate: "2026-03-01", Status: "paid"},
	}
}

func newFixture(api *fakeAPI) (*Coordinator, *Applier, *state.Registry) {
	reg := state.NewRegistry()
	coord := NewCoordinator(api, reg)
	return coord, NewApplier(api, coord), reg
}

func TestLoad_SuccessCommitsInServerOrder(t *testing.T) {
	api := &fakeAPI{dues: sampleDues()}
	coord, _, reg := newFixture(api)

	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))

	snap := reg.Dues.Snapshot()
	assert.Equal(t, state.StatusReady, snap.Status)
	assert.Empty(t, snap.Error)
	if diff := cmp.Diff(sampleDues(), snap.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FailureKeepsPreviousRows(t *testing.T) {
	api := &fakeAPI{dues: sampleDues()}
	coord, _, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))

	api.duesErr = &adminapi.APIError{Status: 503, Message: "backend down"}
	err := coord.Load(context.Background(), state.KindDues, query.New())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, state.KindDues, fetchErr.Kind)

	snap := reg.Dues.Snapshot()
	assert.Equal(t, state.StatusFailed, snap.Status)
	assert.Equal(t, "backend down", snap.Error)
	if diff := cmp.Diff(sampleDues(), snap.Items); diff != "" {
		t.Fatalf("rows changed on failure (-want +got):\n%s", diff)
	}
}

func TestLoad_LaterIssuedLoadWins(t *testing.T) {
	slow := make(chan struct{})
	fast := make(chan struct{})
	api := &fakeAPI{dues: sampleDues(), gates: map[string]chan struct{}{"pending": slow, "paid": fast}}
	coord, _, reg := newFixture(api)

	pending := query.New()
	pending.Filters["status"] = "pending"
	paid := query.New()
	paid.Filters["status"] = "paid"

	errA := make(chan error, 1)
	go func() { errA <- coord.Load(context.Background(), state.KindDues, pending) }()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.duesCalls) == 1
	}, time2s, tick)

	errB := make(chan error, 1)
	go func() { errB <- coord.Load(context.Background(), state.KindDues, paid) }()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.duesCalls) == 2
	}, time2s, tick)

	close(fast)
	require.NoError(t, <-errB)
	close(slow)
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	snap := reg.Dues.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, adminapi.ID("d3"), snap.Items[0].ID)
	assert.Equal(t, "paid", coord.LastQuery(state.KindDues).Filter("status"))
}

func TestApply_MarkPaidPatchesOnlyTarget(t *testing.T) {
	api := &fakeAPI{dues: sampleDues(), writeResp: json.RawMessage(`{"id":"d1","status":"paid"}`)}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))
	loads := len(api.duesCalls)

	require.NoError(t, applier.Apply(context.Background(), state.KindDues, "d1", ActionMarkPaid, nil))

	want := sampleDues()
	want[0].Status = "paid"
	if diff := cmp.Diff(want, reg.Dues.Snapshot().Items); diff != "" {
		t.Fatalf("dues mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, loads, len(api.duesCalls), "a mergeable response must not trigger a reload")
	assert.Equal(t, []string{"paid d1"}, api.writeCalls)
}

func TestApply_IntegerIDResponseMatches(t *testing.T) {
	api := &fakeAPI{dues: []adminapi.Due{{ID: "7", Status: "pending"}}, writeResp: json.RawMessage(`{"id":7,"status":"paid"}`)}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))

	require.NoError(t, applier.Apply(context.Background(), state.KindDues, "7", ActionMarkPaid, nil))
	got, ok := reg.Dues.Get("7")
	require.True(t, ok)
	assert.Equal(t, "paid", got.Status)
}

func TestApply_FailureLeavesStoreAlone(t *testing.T) {
	api := &fakeAPI{dues: sampleDues(), writeErr: errors.New("connection reset")}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))

	err := applier.Apply(context.Background(), state.KindDues, "d1", ActionMarkPaid, nil)
	var mutErr *MutationError
	require.ErrorAs(t, err, &mutErr)
	assert.Equal(t, "d1", mutErr.ID)
	assert.Equal(t, "connection reset", mutErr.Message())

	snap := reg.Dues.Snapshot()
	assert.Equal(t, state.StatusReady, snap.Status)
	assert.Empty(t, snap.Error)
	if diff := cmp.Diff(sampleDues(), snap.Items); diff != "" {
		t.Fatalf("rows changed on failed write (-want +got):\n%s", diff)
	}
}

func TestApply_IDLessResponseReloadsKind(t *testing.T) {
	api := &fakeAPI{dues: sampleDues(), writeResp: json.RawMessage(`{"message":"Due marked as paid"}`)}
	coord, applier, reg := newFixture(api)

	q := query.New()
	q.Filters["status"] = "pending"
	require.NoError(t, coord.Load(context.Background(), state.KindDues, q))
	require.Len(t, reg.Dues.Snapshot().Items, 2)

	api.mu.Lock()
	api.dues[0].Status = "paid"
	api.mu.Unlock()

	require.NoError(t, applier.Apply(context.Background(), state.KindDues, "d1", ActionMarkPaid, nil))

	require.Len(t, api.duesCalls, 2)
	assert.Equal(t, "pending", api.duesCalls[1]["status"], "reload uses the last query")
	items := reg.Dues.Snapshot().Items
	require.Len(t, items, 1)
	assert.Equal(t, adminapi.ID("d2"), items[0].ID)
}

func TestIssue_OrderIsFixedAtIssueTime(t *testing.T) {
	api := &fakeAPI{dues: sampleDues()}
	coord, _, reg := newFixture(api)

	paid := query.New()
	paid.Filters["status"] = "paid"
	pending := query.New()
	pending.Filters["status"] = "pending"

	first := coord.Issue(state.KindDues, paid)
	second := coord.Issue(state.KindDues, pending)
	assert.Equal(t, state.StatusLoading, reg.Dues.Meta().Status, "issuing marks the store loading")
	assert.Equal(t, "pending", coord.LastQuery(state.KindDues).Filter("status"))

	require.NoError(t, second.Run(context.Background()))
	assert.ErrorIs(t, first.Run(context.Background()), ErrSuperseded)

	snap := reg.Dues.Snapshot()
	require.Len(t, snap.Items, 2)
	for _, d := range snap.Items {
		assert.Equal(t, "pending", d.Status)
	}
}

func TestApply_AcceptedWriteSurvivesFailedReload(t *testing.T) {
	api := &fakeAPI{dues: sampleDues(), writeResp: json.RawMessage(`{"message":"Due marked as paid"}`)}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))

	api.mu.Lock()
	api.duesErr = errors.New("read timeout")
	api.mu.Unlock()

	err := applier.Apply(context.Background(), state.KindDues, "d1", ActionMarkPaid, nil)
	require.NoError(t, err, "the server accepted the write")
	assert.Equal(t, []string{"paid d1"}, api.writeCalls)

	snap := reg.Dues.Snapshot()
	assert.Equal(t, state.StatusFailed, snap.Status, "the reload failure belongs on the store")
	assert.Contains(t, snap.Error, "read timeout")
	assert.Len(t, snap.Items, 3, "previous rows stay visible")
}

func TestApply_BlockFromDuesUpdatesVehiclesOnly(t *testing.T) {
	api := &fakeAPI{
		dues:      sampleDues(),
		vehicles:  []adminapi.Vehicle{{ID: "v1", Plate: "ABC-1", Status: "active"}},
		writeResp: json.RawMessage(`{"id":"v1","status":"blocked"}`),
	}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))
	require.NoError(t, coord.Load(context.Background(), state.KindVehicles, query.New()))
	before := reg.Dues.Snapshot()

	require.NoError(t, applier.Apply(context.Background(), state.KindVehicles, "v1", ActionBlock, nil))

	v, _ := reg.Vehicles.Get("v1")
	assert.Equal(t, "blocked", v.Status)
	assert.Equal(t, "ABC-1", v.Plate)
	if diff := cmp.Diff(before, reg.Dues.Snapshot()); diff != "" {
		t.Fatalf("dues store touched (-before +after):\n%s", diff)
	}
}

func TestApply_CreateGuardAppends(t *testing.T) {
	api := &fakeAPI{
		guards:    []adminapi.Guard{{ID: "g1", Name: "Ann", Gate: "North"}},
		writeResp: json.RawMessage(`{"id":2,"name":"Bob","gate":"South","status":"active"}`),
	}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindGuards, query.New()))

	require.NoError(t, applier.Apply(context.Background(), state.KindGuards, "", ActionCreate, Payload{"name": "Bob", "gate": "South"}))

	items := reg.Guards.Snapshot().Items
	require.Len(t, items, 2)
	assert.Equal(t, adminapi.Guard{ID: "2", Name: "Bob", Gate: "South", Status: "active"}, items[1])
}

func TestApply_SettingsUpdateMergesSelected(t *testing.T) {
	api := &fakeAPI{
		settings:  adminapi.Settings{QRExpiry: 10, OCREnabled: true, NotificationTemplate: "Hello"},
		writeResp: json.RawMessage(`{"qrExpiry":30,"ocrEnabled":true,"notificationTemplate":"Hello"}`),
	}
	coord, applier, reg := newFixture(api)
	require.NoError(t, coord.Load(context.Background(), state.KindSettings, query.New()))

	require.NoError(t, applier.Apply(context.Background(), state.KindSettings, "", ActionUpdate, Payload{"qrExpiry": 30}))
	assert.Equal(t, 30, reg.Settings.Snapshot().Selected.QRExpiry)
}

func TestApply_ValidationAndUnknownActions(t *testing.T) {
	api := &fakeAPI{}
	_, applier, _ := newFixture(api)
	ctx := context.Background()

	err := applier.Apply(ctx, state.KindRequests, "r1", ActionReject, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reason is required")

	err = applier.Apply(ctx, state.KindDues, "", ActionMarkPaid, nil)
	assert.Contains(t, err.Error(), "id is required")

	err = applier.Apply(ctx, state.KindLogs, "l1", ActionApprove, nil)
	assert.ErrorIs(t, err, ErrUnknownAction)

	err = applier.Apply(ctx, state.Kind("parcels"), "p1", ActionApprove, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	assert.Empty(t, api.writeCalls, "invalid mutations never reach the API")
}

func TestCoordinator_SingleRecordAndSideReads(t *testing.T) {
	api := &fakeAPI{
		metrics: adminapi.Metrics{TotalVehicles: 12},
		user:    adminapi.User{ID: "u1", Name: "Ann"},
		qr:      "QR-PAYLOAD",
		export:  []byte("id,vehicle\n"),
	}
	coord, _, reg := newFixture(api)
	ctx := context.Background()

	require.NoError(t, coord.Load(ctx, state.KindMetrics, query.New()))
	assert.Equal(t, 12, reg.Metrics.Snapshot().Selected.TotalVehicles)

	require.NoError(t, coord.LoadSelected(ctx, state.KindUsers, "u1"))
	assert.Equal(t, "Ann", reg.Users.Snapshot().Selected.Name)

	qr, err := coord.FetchVehicleQR(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "QR-PAYLOAD", qr)

	data, err := coord.ExportLogs(ctx, query.New())
	require.NoError(t, err)
	assert.Equal(t, "id,vehicle\n", string(data))
	assert.Equal(t, state.StatusIdle, reg.Logs.Meta().Status, "export has no store side effect")

	assert.ErrorIs(t, coord.Load(ctx, state.Kind("parcels"), query.New()), ErrUnknownKind)
}

func TestCoordinator_LoadAllContinuesPastFailures(t *testing.T) {
	api := &fakeAPI{dues: sampleDues(), duesErr: errors.New("dues down"), vehicles: []adminapi.Vehicle{{ID: "v1"}}}
	coord, _, reg := newFixture(api)

	err := coord.LoadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dues down")

	assert.Equal(t, state.StatusFailed, reg.Dues.Meta().Status)
	assert.Equal(t, state.StatusReady, reg.Vehicles.Meta().Status)
	assert.Equal(t, state.StatusReady, reg.Metrics.SelectedMeta().Status)
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	promReg := prometheus.NewRegistry()
	m := NewMetrics(promReg)

	api := &fakeAPI{dues: sampleDues(), writeResp: json.RawMessage(`{"id":"d1","status":"paid"}`)}
	reg := state.NewRegistry()
	coord := NewCoordinator(api, reg, WithMetrics(m))
	applier := NewApplier(api, coord, WithMetrics(m))

	require.NoError(t, coord.Load(context.Background(), state.KindDues, query.New()))
	require.NoError(t, applier.Apply(context.Background(), state.KindDues, "d1", ActionMarkPaid, nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("dues", outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("dues", "mark-paid", outcomeOK)))

	var nilMetrics *Metrics
	nilMetrics.fetch(state.KindDues, outcomeOK, 0)
}

const (
	time2s = 2 * time.Second
	tick   = 5 * time.Millisecond
)
