package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/natefinch/atomic"

	"github.com/five82/gatehouse/internal/binding"
	"github.com/five82/gatehouse/internal/prefs"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
)

// viewState is the per-view UI state. The composer owns the query; the model
// only keeps what the server never sees.
type viewState struct {
	kind     state.Kind
	composer *query.Composer
	cursor   int
	sortCol  int
	sortDesc bool
}

func newViewState(kind state.Kind, queries chan<- queryMsg, debounce time.Duration, after query.AfterFunc, logger *slog.Logger) *viewState {
	emit := func(q query.Query) {
		// Never block the caller: filters emit on the Update goroutine.
		select {
		case queries <- queryMsg{kind: kind, q: q}:
		default:
			logger.Warn("query dropped; queue full", "kind", kind, "filters", q.Filters, "search", q.Search, "page", q.Page)
		}
	}
	opts := []query.Option{}
	if debounce > 0 {
		opts = append(opts, query.WithDebounce(debounce))
	}
	if after != nil {
		opts = append(opts, query.WithAfterFunc(after))
	}
	return &viewState{
		kind:     kind,
		composer: query.NewComposer(emit, opts...),
		sortCol:  -1,
	}
}

// Messages

type tickMsg time.Time

type queryMsg struct {
	kind state.Kind
	q    query.Query
}

type loadedMsg struct {
	kind state.Kind
	err  error
}

type refreshedMsg struct {
	err error
}

type detailMsg struct {
	kind state.Kind
	id   string
	err  error
}

type appliedMsg struct {
	kind   state.Kind
	action syncer.Action
	id     string
	err    error
}

type qrMsg struct {
	id      string
	payload string
	err     error
}

type exportedMsg struct {
	path string
	err  error
}

type prefsSavedMsg struct {
	err error
}

// Commands

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForQuery delivers the next composed query. It is re-armed after every
// queryMsg so the channel always has one reader.
func waitForQuery(queries <-chan queryMsg) tea.Cmd {
	return func() tea.Msg {
		return <-queries
	}
}

func (m Model) loadCmd(kind state.Kind, q query.Query) tea.Cmd {
	if m.coord == nil {
		return nil
	}
	return m.runCmd(m.coord.Issue(kind, q))
}

// runCmd runs a load whose token was issued on the Update goroutine, so the
// order of issue decides which result is kept.
func (m Model) runCmd(p syncer.Pending) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{kind: p.Kind, err: p.Run(ctx)}
	}
}

// loadIfNeeded loads kind the first time its view is shown.
func (m Model) loadIfNeeded(kind state.Kind) tea.Cmd {
	if m.reg == nil {
		return nil
	}
	meta, ok := m.reg.Meta(kind)
	if !ok || meta.Status != state.StatusIdle {
		return nil
	}
	return m.loadCmd(kind, m.views[kind].composer.Query())
}

func (m Model) retryCmd(kind state.Kind) tea.Cmd {
	if m.coord == nil {
		return nil
	}
	return m.runCmd(m.coord.IssueRetry(kind))
}

// refreshAllCmd reloads every view with its last query.
func (m Model) refreshAllCmd() tea.Cmd {
	if m.coord == nil {
		return nil
	}
	coord, ctx := m.coord, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: coord.LoadAll(ctx)}
	}
}

func (m Model) detailCmd(kind state.Kind, id string) tea.Cmd {
	if m.coord == nil {
		return nil
	}
	p, ctx := m.coord.IssueSelected(kind, id), m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		return detailMsg{kind: kind, id: id, err: p.Run(ctx)}
	}
}

func (m Model) applyCmd(kind state.Kind, id string, action syncer.Action, payload syncer.Payload) tea.Cmd {
	if m.applier == nil {
		return nil
	}
	applier, ctx := m.applier, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		err := applier.Apply(ctx, kind, id, action, payload)
		return appliedMsg{kind: kind, action: action, id: id, err: err}
	}
}

func (m Model) qrCmd(id string) tea.Cmd {
	if m.coord == nil {
		return nil
	}
	coord, ctx := m.coord, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		payload, err := coord.FetchVehicleQR(ctx, id)
		return qrMsg{id: id, payload: payload, err: err}
	}
}

// exportCmd downloads the log export for the current logs query and writes
// it into the export directory.
func (m Model) exportCmd() tea.Cmd {
	if m.coord == nil {
		return nil
	}
	coord, ctx, dir := m.coord, m.ctx, m.exportDir
	q := m.views[state.KindLogs].composer.Query()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, ActionTimeout)
		defer cancel()
		data, err := coord.ExportLogs(ctx, q)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportedMsg{err: fmt.Errorf("create export dir: %w", err)}
		}
		path := filepath.Join(dir, "gate-logs-"+time.Now().Format("20060102-150405")+".csv")
		if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			return exportedMsg{err: fmt.Errorf("write export: %w", err)}
		}
		return exportedMsg{path: path}
	}
}

func (m Model) savePrefsCmd() tea.Cmd {
	path := m.prefsPath
	p := prefs.Prefs{Theme: m.theme.Name, LastView: string(m.current)}
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// View navigation

func (m Model) view() *viewState {
	return m.views[m.current]
}

// neighbourView returns the kind step places away in display order.
func (m Model) neighbourView(step int) state.Kind {
	kinds := state.Kinds()
	idx := 0
	for i, k := range kinds {
		if k == m.current {
			idx = i
			break
		}
	}
	idx = (idx + step + len(kinds)) % len(kinds)
	return kinds[idx]
}

func (m *Model) switchView(kind state.Kind) tea.Cmd {
	if kind == m.current {
		return nil
	}
	if m.searching {
		m.searching = false
		m.search.Blur()
	}
	m.current = kind
	m.search.SetValue(m.views[kind].composer.PendingSearch())
	return tea.Batch(m.loadIfNeeded(kind), m.savePrefsCmd())
}

// table projects the current contents of v's store, sorted the way the
// user asked.
func (m Model) table(v *viewState) (binding.Table, state.Meta) {
	if m.reg == nil {
		return binding.Table{Kind: v.kind, Columns: binding.Columns(v.kind)}, state.Meta{}
	}
	t, meta, err := binding.Project(m.reg, v.kind)
	if err != nil {
		return t, meta
	}
	if v.sortCol >= 0 {
		t = t.Sort(v.sortCol, v.sortDesc)
	}
	return t, meta
}

// pageView is the visible slice of a view plus its paging position.
type pageView struct {
	table binding.Table
	meta  state.Meta
	page  int
	pages int
	total int
}

// page returns the visible page of v with the page number clamped to the
// rows currently held.
func (m Model) page(v *viewState) pageView {
	t, meta := m.table(v)
	total := len(t.Rows)
	page := query.ClampPage(v.composer.Query().Page, total, m.perPage)
	return pageView{
		table: t.Page(page, m.perPage),
		meta:  meta,
		page:  page,
		pages: query.TotalPages(total, m.perPage),
		total: total,
	}
}

func (m Model) clampCursor(v *viewState) {
	if v == nil {
		return
	}
	rows := len(m.page(v).table.Rows)
	switch {
	case rows == 0:
		v.cursor = 0
	case v.cursor >= rows:
		v.cursor = rows - 1
	case v.cursor < 0:
		v.cursor = 0
	}
}

// selectedRow returns the row under the cursor of the current view.
func (m Model) selectedRow() (binding.Row, bool) {
	v := m.view()
	rows := m.page(v).table.Rows
	if v.cursor < 0 || v.cursor >= len(rows) {
		return binding.Row{}, false
	}
	return rows[v.cursor], true
}

func errorText(err error) string {
	var fe *syncer.FetchError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	var me *syncer.MutationError
	if errors.As(err, &me) {
		return me.Message()
	}
	return err.Error()
}
