package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/gatehouse/internal/config"
	"github.com/five82/gatehouse/internal/prefs"
	"github.com/five82/gatehouse/internal/query"
	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
)

// Options configures the UI.
type Options struct {
	Context     context.Context
	Coordinator *syncer.Coordinator
	Applier     *syncer.Applier
	Config      config.Config
	Logger      *slog.Logger
	PollTick    time.Duration
	ThemeName   string
	PrefsPath   string
	InitialView state.Kind

	// AfterFunc replaces the search debounce timer source.
	AfterFunc query.AfterFunc
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Collaborators
	ctx       context.Context
	coord     *syncer.Coordinator
	applier   *syncer.Applier
	reg       *state.Registry
	logger    *slog.Logger
	prefsPath string
	exportDir string
	perPage   int
	pollTick  time.Duration

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	modal    Modal
	flash    flash

	// Views
	views   map[state.Kind]*viewState
	current state.Kind
	queries chan queryMsg

	// Search input for the current view
	search    textinput.Model
	searching bool

	// Side reads shown in the detail pane, by vehicle id
	qr map[string]string
}

// flash is a transient status line message.
type flash struct {
	text  string
	isErr bool
	at    time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	perPage := opts.Config.ItemsPerPage
	if perPage <= 0 {
		perPage = query.DefaultItemsPerPage
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	exportDir := opts.Config.ExportDir
	if strings.TrimSpace(exportDir) == "" {
		exportDir = "."
	}

	current := opts.InitialView
	if current == "" {
		current = state.KindMetrics
	}

	queries := make(chan queryMsg, 64)
	views := make(map[state.Kind]*viewState, len(state.Kinds()))
	for _, kind := range state.Kinds() {
		views[kind] = newViewState(kind, queries, opts.Config.SearchDebounce, opts.AfterFunc, logger)
	}

	search := textinput.New()
	search.Prompt = "/"
	search.CharLimit = 64
	search.Width = 30

	var reg *state.Registry
	if opts.Coordinator != nil {
		reg = opts.Coordinator.Registry()
	}

	return Model{
		ctx:       ctx,
		coord:     opts.Coordinator,
		applier:   opts.Applier,
		reg:       reg,
		logger:    logger.With("component", "ui"),
		prefsPath: prefsPath,
		exportDir: exportDir,
		perPage:   perPage,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		views:     views,
		current:   current,
		queries:   queries,
		search:    search,
		qr:        make(map[string]string),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.pollTick),
		waitForQuery(m.queries),
		m.loadIfNeeded(m.current),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.clampCursor(m.view())
		return m, nil

	case tickMsg:
		// Stores change underneath us (poller, slow loads); re-render.
		m.clampCursor(m.view())
		if !m.flash.at.IsZero() && time.Time(msg).Sub(m.flash.at) > FlashDuration {
			m.flash = flash{}
		}
		return m, tickCmd(m.pollTick)

	case queryMsg:
		return m, tea.Batch(m.loadCmd(msg.kind, msg.q), waitForQuery(m.queries))

	case loadedMsg:
		if v, ok := m.views[msg.kind]; ok {
			m.clampCursor(v)
		}
		if msg.err != nil && !errors.Is(msg.err, syncer.ErrSuperseded) {
			m.logger.Debug("view load failed", "kind", msg.kind, "error", msg.err)
		}
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.setFlash("Refresh: "+errorText(msg.err), true)
		} else {
			m.setFlash("Refreshed all views", false)
		}
		m.clampCursor(m.view())
		return m, nil

	case detailMsg:
		if msg.err != nil && !errors.Is(msg.err, syncer.ErrSuperseded) {
			m.setFlash("Detail: "+errorText(msg.err), true)
		}
		return m, nil

	case appliedMsg:
		m.handleApplied(msg)
		return m, nil

	case qrMsg:
		if msg.err != nil {
			m.setFlash("QR: "+errorText(msg.err), true)
			return m, nil
		}
		m.qr[msg.id] = msg.payload
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.setFlash("Export failed: "+errorText(msg.err), true)
			return m, nil
		}
		m.setFlash("Exported logs to "+msg.path, false)
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.logger.Warn("save prefs failed", "error", msg.err)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stopComposers()
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.stopComposers()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, m.savePrefsCmd()

	case key.Matches(msg, m.keys.Tab):
		cmd := m.switchView(m.neighbourView(1))
		return m, cmd

	case key.Matches(msg, m.keys.ShiftTab):
		cmd := m.switchView(m.neighbourView(-1))
		return m, cmd

	case key.Matches(msg, m.keys.Escape):
		cmd := m.switchView(state.KindMetrics)
		return m, cmd

	case key.Matches(msg, m.keys.Retry):
		if m.current == state.KindMetrics {
			return m, m.refreshAllCmd()
		}
		return m, m.retryCmd(m.current)
	}

	// Digits jump straight to a view in display order.
	if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
		kinds := state.Kinds()
		if idx := int(s[0] - '1'); idx < len(kinds) {
			cmd := m.switchView(kinds[idx])
			return m, cmd
		}
	}

	return m.handleListKey(msg)
}

// handleSearchKey feeds the search input; every edit goes through the
// view's composer, which debounces the remote query.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.Escape):
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	v := m.view()
	v.composer.SetSearch(m.search.Value())
	v.cursor = 0
	return m, cmd
}

func (m *Model) setFlash(text string, isErr bool) {
	m.flash = flash{text: text, isErr: isErr, at: time.Now()}
}

func (m Model) stopComposers() {
	for _, v := range m.views {
		v.composer.Stop()
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	contentHeight := m.height - 2
	if m.current == state.KindMetrics {
		b.WriteString(m.renderDashboard(contentHeight))
	} else {
		b.WriteString(m.renderList(contentHeight))
	}

	return b.String()
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
