package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
)

// Reader is the read side of the administration API.
type Reader interface {
	ListVehicles(ctx context.Context, params adminapi.Params) ([]adminapi.Vehicle, error)
	ListUsers(ctx context.Context, params adminapi.Params) ([]adminapi.User, error)
	ListGuards(ctx context.Context, params adminapi.Params) ([]adminapi.Guard, error)
	ListRequests(ctx context.Context, params adminapi.Params) ([]adminapi.Request, error)
	ListLogs(ctx context.Context, params adminapi.Params) ([]adminapi.AccessLog, error)
	ListDues(ctx context.Context, params adminapi.Params) ([]adminapi.Due, error)
	ListAudit(ctx context.Context, params adminapi.Params) ([]adminapi.AuditEntry, error)
	GetUser(ctx context.Context, id string) (adminapi.User, error)
	GetSettings(ctx context.Context) (adminapi.Settings, error)
	GetMetrics(ctx context.Context) (adminapi.Metrics, error)
	VehicleQR(ctx context.Context, id string) (string, error)
	ExportLogs(ctx context.Context, params adminapi.Params) ([]byte, error)
}

// Coordinator runs remote reads and commits their outcome into the registry.
type Coordinator struct {
	api     Reader
	reg     *state.Registry
	logger  *slog.Logger
	metrics *Metrics

	mu   sync.Mutex
	last map[state.Kind]query.Query
}

// Option customises a Coordinator or Applier.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// NewCoordinator returns a Coordinator writing into reg.
func NewCoordinator(api Reader, reg *state.Registry, opts ...Option) *Coordinator {
	o := buildOptions(opts)
	return &Coordinator{
		api:     api,
		reg:     reg,
		logger:  o.logger.With("component", "coordinator"),
		metrics: o.metrics,
		last:    make(map[state.Kind]query.Query),
	}
}

// Registry returns the stores the coordinator writes to.
func (c *Coordinator) Registry() *state.Registry { return c.reg }

// LastQuery returns the query most recently loaded for kind.
func (c *Coordinator) LastQuery(kind state.Kind) query.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok := c.last[kind]; ok {
		return q.Clone()
	}
	return query.New()
}

// Pending is a load whose ordering token has already been issued. Run
// performs the fetch and commits it unless a later load was issued first.
type Pending struct {
	Kind state.Kind
	run  func(ctx context.Context) error
}

// Run executes the fetch. It may be called once, from any goroutine.
func (p Pending) Run(ctx context.Context) error {
	return p.run(ctx)
}

func failedPending(kind state.Kind, err error) Pending {
	return Pending{Kind: kind, run: func(context.Context) error { return err }}
}

// Load fetches kind with q and commits the result. A failed read returns a
// *FetchError after recording its message on the store. When a newer Load
// for the same store was issued first, the outcome is discarded and
// ErrSuperseded is returned.
func (c *Coordinator) Load(ctx context.Context, kind state.Kind, q query.Query) error {
	return c.Issue(kind, q).Run(ctx)
}

// Issue records q as the last query for kind and takes the store's ordering
// token now, without blocking. Callers that issue from one goroutine get
// last-issued-wins in exactly their call order, however the Runs interleave.
func (c *Coordinator) Issue(kind state.Kind, q query.Query) Pending {
	q = q.Clone()
	c.mu.Lock()
	c.last[kind] = q
	c.mu.Unlock()

	params := q.Params(kind.SearchKey())
	switch kind {
	case state.KindVehicles:
		return issueList(c, kind, c.reg.Vehicles, func(ctx context.Context) ([]adminapi.Vehicle, error) {
			return c.api.ListVehicles(ctx, params)
		})
	case state.KindUsers:
		return issueList(c, kind, c.reg.Users, func(ctx context.Context) ([]adminapi.User, error) {
			return c.api.ListUsers(ctx, params)
		})
	case state.KindGuards:
		return issueList(c, kind, c.reg.Guards, func(ctx context.Context) ([]adminapi.Guard, error) {
			return c.api.ListGuards(ctx, params)
		})
	case state.KindRequests:
		return issueList(c, kind, c.reg.Requests, func(ctx context.Context) ([]adminapi.Request, error) {
			return c.api.ListRequests(ctx, params)
		})
	case state.KindLogs:
		return issueList(c, kind, c.reg.Logs, func(ctx context.Context) ([]adminapi.AccessLog, error) {
			return c.api.ListLogs(ctx, params)
		})
	case state.KindDues:
		return issueList(c, kind, c.reg.Dues, func(ctx context.Context) ([]adminapi.Due, error) {
			return c.api.ListDues(ctx, params)
		})
	case state.KindAudit:
		return issueList(c, kind, c.reg.Audit, func(ctx context.Context) ([]adminapi.AuditEntry, error) {
			return c.api.ListAudit(ctx, params)
		})
	case state.KindSettings, state.KindMetrics:
		return c.IssueSelected(kind, "")
	default:
		return failedPending(kind, fmt.Errorf("%w: %q", ErrUnknownKind, kind))
	}
}

// LoadSelected fetches one record into the store's selected slot: a user's
// details, or the settings and metrics singletons (id is ignored for those).
func (c *Coordinator) LoadSelected(ctx context.Context, kind state.Kind, id string) error {
	return c.IssueSelected(kind, id).Run(ctx)
}

// IssueSelected is Issue for the selected slot.
func (c *Coordinator) IssueSelected(kind state.Kind, id string) Pending {
	switch kind {
	case state.KindUsers:
		if id == "" {
			return failedPending(kind, fmt.Errorf("load user detail: id is required"))
		}
		return issueOne(c, kind, c.reg.Users, func(ctx context.Context) (adminapi.User, error) {
			return c.api.GetUser(ctx, id)
		})
	case state.KindSettings:
		return issueOne(c, kind, c.reg.Settings, c.api.GetSettings)
	case state.KindMetrics:
		return issueOne(c, kind, c.reg.Metrics, c.api.GetMetrics)
	default:
		return failedPending(kind, fmt.Errorf("%w: %q has no detail read", ErrUnknownKind, kind))
	}
}

// Retry re-issues the last query loaded for kind.
func (c *Coordinator) Retry(ctx context.Context, kind state.Kind) error {
	return c.IssueRetry(kind).Run(ctx)
}

// IssueRetry is Issue with the last query loaded for kind.
func (c *Coordinator) IssueRetry(kind state.Kind) Pending {
	return c.Issue(kind, c.LastQuery(kind))
}

// LoadAll refreshes every kind concurrently with its last query. A failing
// kind does not cancel the others; all failures are joined.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	kinds := state.Kinds()
	errs := make([]error, len(kinds))

	pending := make([]Pending, len(kinds))
	for i, kind := range kinds {
		pending[i] = c.IssueRetry(kind)
	}

	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range pending {
		i, p := i, p
		g.Go(func() error {
			err := p.Run(ctx)
			if errors.Is(err, ErrSuperseded) {
				err = nil
			}
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// ExportLogs downloads the in/out log export for q. No store is touched.
func (c *Coordinator) ExportLogs(ctx context.Context, q query.Query) ([]byte, error) {
	data, err := c.api.ExportLogs(ctx, q.Params(state.KindLogs.SearchKey()))
	if err != nil {
		c.logger.Warn("log export failed", "error", err)
		return nil, &FetchError{Kind: state.KindLogs, Err: err}
	}
	c.logger.Info("log export downloaded", "bytes", len(data))
	return data, nil
}

// FetchVehicleQR returns the QR payload for a vehicle. No store is touched.
func (c *Coordinator) FetchVehicleQR(ctx context.Context, id string) (string, error) {
	qr, err := c.api.VehicleQR(ctx, id)
	if err != nil {
		return "", &FetchError{Kind: state.KindVehicles, Err: err}
	}
	return qr, nil
}

func issueList[T state.Entity](c *Coordinator, kind state.Kind, store *state.Store[T], fetch func(context.Context) ([]T, error)) Pending {
	tok := store.Begin()
	return Pending{Kind: kind, run: func(ctx context.Context) error {
		start := time.Now()
		items, err := fetch(ctx)
		return c.commit(kind, tok, start, err, func() bool {
			return store.Succeed(tok, items)
		}, func(msg string) bool {
			return store.Fail(tok, msg)
		}, len(items))
	}}
}

func issueOne[T state.Entity](c *Coordinator, kind state.Kind, store *state.Store[T], fetch func(context.Context) (T, error)) Pending {
	tok := store.BeginSelected()
	return Pending{Kind: kind, run: func(ctx context.Context) error {
		start := time.Now()
		item, err := fetch(ctx)
		return c.commit(kind, tok, start, err, func() bool {
			return store.SucceedSelected(tok, item)
		}, func(msg string) bool {
			return store.Fail(tok, msg)
		}, 1)
	}}
}

func (c *Coordinator) commit(kind state.Kind, tok state.Token, start time.Time, err error, succeed func() bool, fail func(string) bool, count int) error {
	elapsed := time.Since(start)
	if err != nil {
		fetchErr := &FetchError{Kind: kind, Err: err}
		if !fail(fetchErr.Message()) {
			c.metrics.fetch(kind, outcomeSuperseded, elapsed)
			c.logger.Debug("stale load failure discarded", "kind", kind, "token", tok.Seq(), "error", err)
			return ErrSuperseded
		}
		c.metrics.fetch(kind, outcomeError, elapsed)
		c.logger.Warn("load failed", "kind", kind, "token", tok.Seq(), "error", err)
		return fetchErr
	}
	if !succeed() {
		c.metrics.fetch(kind, outcomeSuperseded, elapsed)
		c.logger.Debug("stale load result discarded", "kind", kind, "token", tok.Seq())
		return ErrSuperseded
	}
	c.metrics.fetch(kind, outcomeOK, elapsed)
	c.logger.Debug("load committed", "kind", kind, "token", tok.Seq(), "items", count, "elapsed", elapsed)
	return nil
}
