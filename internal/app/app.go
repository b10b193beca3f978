package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/five82/devpanel/internal/backend"
	"github.com/five82/devpanel/internal/config"
	"github.com/five82/devpanel/internal/logger"
	"github.com/five82/devpanel/internal/prefs"
	"github.com/five82/devpanel/internal/push"
	"github.com/five82/devpanel/internal/state"
	"github.com/five82/devpanel/internal/telemetry"
	"github.com/five82/devpanel/internal/ui"
)

// Options configure the devpanel application. Zero values defer to the
// config file.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses default ~/.config/devpanel/prefs.toml
	APIURL      string
	BackendPort int
	PollEvery   int // seconds
	LogLevel    string
	MetricsAddr string
	Headless    bool
}

const (
	defaultLogLines = 200
	probeTimeout    = 5 * time.Second
)

// Run boots devpanel until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load devpanel config: %w", err)
	}
	applyOverrides(&cfg, opts)

	logOutput := cfg.LogFile
	if opts.Headless {
		logOutput = "stderr"
	}
	closer, err := logger.Init(logger.Config{Level: cfg.LogLevel, Output: logOutput})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = closer.Close() }()
	log := logger.WithComponent("app")

	client, err := backend.NewClient(cfg.APIURL, backend.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("init backend client: %w", err)
	}
	endpoint, err := push.Endpoint(client.BaseURL(), cfg.BackendPort)
	if err != nil {
		return fmt.Errorf("derive push endpoint: %w", err)
	}

	reg := prom.NewRegistry()
	recorder := telemetry.NewRecorder(reg)

	pushLog := logger.WithComponent("push")
	stateLog := logger.WithComponent("state")
	store := state.NewStore(state.Options{
		Fetcher:   client,
		Commander: client,
		Dialer: state.PushDialer(push.Connector{
			URL:     endpoint,
			Options: push.Options{Logger: &pushLog},
		}),
		Observer:     recorder,
		Logger:       &stateLog,
		HistoryLimit: cfg.HistoryLimit,
		LogQuery:     backend.LogQuery{Type: "system", Lines: defaultLogLines}.Values(),
	})
	defer func() { _ = store.Close() }()

	log.Info().
		Str("api", client.BaseURL().String()).
		Str("push", endpoint.String()).
		Dur("poll", cfg.PollInterval).
		Bool("headless", opts.Headless).
		Msg("starting devpanel")

	if cfg.MetricsAddr != "" {
		go func() {
			if err := telemetry.Serve(ctx, cfg.MetricsAddr, reg, logger.WithComponent("telemetry")); err != nil {
				log.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	probe(ctx, client, store, log)
	StartPoller(ctx, store, cfg.PollInterval, logger.WithComponent("poller"))

	if err := store.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("push channel unavailable, continuing with pulls only")
	}

	if opts.Headless {
		return runHeadless(ctx, store, log)
	}

	userPrefs := prefs.Load(opts.PrefsPath)
	uiOpts := ui.Options{
		Context:    ctx,
		Store:      store,
		Config:     &cfg,
		PollTick:   time.Second,
		ThemeName:  userPrefs.Theme,
		StartRoute: userPrefs.LastRoute,
		PrefsPath:  opts.PrefsPath,
	}
	return ui.Run(uiOpts)
}

// probe checks the backend once at startup and seeds the CPU history. Neither
// failure is fatal; the poller keeps retrying the regular pulls.
func probe(ctx context.Context, client *backend.Client, store *state.Store, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	health, err := client.FetchHealth(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("backend health probe failed")
		return
	}
	log.Info().Str("status", health.Status).Msg("backend reachable")

	if err := store.SeedHistory(ctx, client); err != nil {
		log.Debug().Err(err).Msg("starting with empty cpu history")
	}
}

func applyOverrides(cfg *config.Config, opts Options) {
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if opts.BackendPort > 0 && opts.BackendPort <= 65535 {
		cfg.BackendPort = opts.BackendPort
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(opts.MetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
}
