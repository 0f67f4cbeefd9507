package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/gatehouse/internal/adminapi"
	"github.com/five82/gatehouse/internal/config"
	"github.com/five82/gatehouse/internal/prefs"
	"github.com/five82/gatehouse/internal/state"
	"github.com/five82/gatehouse/internal/syncer"
	"github.com/five82/gatehouse/internal/ui"
)

// Options configure the console.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/gatehouse/prefs.toml
	Verbose    bool
	// LogWriter overrides the configured log file. Headless commands pass
	// stderr here.
	LogWriter io.Writer
}

// Services is the wired core shared by the TUI and the headless commands.
type Services struct {
	Config      config.Config
	Logger      *slog.Logger
	Client      *adminapi.Client
	Registry    *state.Registry
	Coordinator *syncer.Coordinator
	Applier     *syncer.Applier
	Gatherer    *prometheus.Registry

	closers []io.Closer
}

// Build loads configuration and wires the client, stores and syncer.
func Build(opts Options) (*Services, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s := &Services{Config: cfg}

	logger, closer, err := newLogger(cfg, opts)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	s.Logger = logger

	client, err := adminapi.NewClient(cfg.APIURL,
		adminapi.WithToken(cfg.Token),
		adminapi.WithTimeout(cfg.RequestTimeout),
		adminapi.WithLogger(logger),
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	s.Client = client

	s.Gatherer = prometheus.NewRegistry()
	s.Gatherer.MustRegister(collectors.NewGoCollector())
	metrics := syncer.NewMetrics(s.Gatherer)

	s.Registry = state.NewRegistry()
	s.Coordinator = syncer.NewCoordinator(client, s.Registry, syncer.WithLogger(logger), syncer.WithMetrics(metrics))
	s.Applier = syncer.NewApplier(client, s.Coordinator, syncer.WithLogger(logger), syncer.WithMetrics(metrics))

	logger.Debug("services ready", "api_url", cfg.APIURL, "timeout", cfg.RequestTimeout)
	return s, nil
}

// Close releases the log file.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Run boots the TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	svc, err := Build(opts)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	if svc.Config.MetricsAddr != "" {
		ServeMetrics(ctx, svc.Config.MetricsAddr, svc.Gatherer, svc.Logger)
	}

	StartPoller(ctx, svc.Coordinator, svc.Config.PollInterval, svc.Logger)

	initial := state.KindMetrics
	if k, err := state.ParseKind(userPrefs.LastView); err == nil {
		initial = k
	}

	uiOpts := ui.Options{
		Context:     ctx,
		Coordinator: svc.Coordinator,
		Applier:     svc.Applier,
		Config:      svc.Config,
		Logger:      svc.Logger,
		ThemeName:   userPrefs.Theme,
		PrefsPath:   opts.PrefsPath,
		InitialView: initial,
	}
	return ui.Run(uiOpts)
}

// ServeMetrics exposes the Prometheus registry on addr until ctx ends.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", "addr", addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics listener started", "addr", addr)
	return srv
}

func newLogger(cfg config.Config, opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(cfg.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.LogWriter != nil {
		return slog.New(slog.NewTextHandler(opts.LogWriter, handlerOpts)), nil, nil
	}
	if strings.TrimSpace(cfg.LogFile) == "" {
		return slog.New(slog.NewTextHandler(io.Discard, handlerOpts)), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(file, handlerOpts)), file, nil
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
