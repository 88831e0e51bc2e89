package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/cache"
	"github.com/rugscan/rugscan/internal/config"
	"github.com/rugscan/rugscan/internal/metrics"
	"github.com/rugscan/rugscan/internal/msg"
	"github.com/rugscan/rugscan/internal/net/httpx"
	"github.com/rugscan/rugscan/internal/net/ratelimit"
	"github.com/rugscan/rugscan/internal/notify"
	"github.com/rugscan/rugscan/internal/providers"
	"github.com/rugscan/rugscan/internal/providers/dexscreener"
	"github.com/rugscan/rugscan/internal/providers/goplus"
	"github.com/rugscan/rugscan/internal/providers/honeypotis"
	"github.com/rugscan/rugscan/internal/providers/rugcheck"
	"github.com/rugscan/rugscan/internal/scan"
	"github.com/rugscan/rugscan/internal/storage"
	"github.com/rugscan/rugscan/internal/storage/memory"
	"github.com/rugscan/rugscan/internal/storage/postgres"
	redisstore "github.com/rugscan/rugscan/internal/storage/redis"
	"github.com/rugscan/rugscan/internal/watchlist"
)

// app is the wired background process: every component the commands
// route through.
type app struct {
	config     config.App
	store      storage.KV
	cache      *cache.Manager
	scanner    *scan.Scanner
	watchlist  *watchlist.Store
	settings   *config.SettingsStore
	dispatcher *msg.Dispatcher
	monitor    *watchlist.Monitor
	metrics    *metrics.Registry
	archive    *postgres.AlertArchive

	closers []func() error
}

// newApp loads config and wires the full pipeline. The KV store is
// redis when configured, in-memory otherwise; the alert archive is
// attached only when a postgres DSN is configured.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	a := &app{config: cfg, metrics: metrics.NewRegistry()}

	a.store = memory.New()
	if cfg.Storage.RedisAddr != "" {
		rs, err := redisstore.New(ctx, cfg.Storage.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		a.store = rs
		a.closers = append(a.closers, rs.Close)
		log.Info().Str("addr", cfg.Storage.RedisAddr).Msg("using redis store")
	}

	if cfg.Storage.PostgresDSN != "" {
		archive, err := postgres.Open(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening alert archive: %w", err)
		}
		a.archive = archive
		a.closers = append(a.closers, archive.Close)
	}

	limits := ratelimit.NewManager(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
	client := httpx.NewClient(httpx.Config{
		RequestTimeout: cfg.Fetch.RequestTimeout,
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		BackoffBase:    cfg.Fetch.BackoffBase,
	})

	market := dexscreener.New(dexscreener.Config{BaseURL: cfg.Providers.DexscreenerURL}, client, limits)
	security := []providers.Security{
		goplus.New(goplus.Config{BaseURL: cfg.Providers.GoplusURL}, client, limits),
		honeypotis.New(honeypotis.Config{BaseURL: cfg.Providers.HoneypotURL}, client, limits),
		rugcheck.New(rugcheck.Config{BaseURL: cfg.Providers.RugcheckURL}, client, limits),
	}

	a.cache = cache.NewManager(ctx, a.store)
	a.scanner = scan.NewScanner(market, security, a.cache, a.metrics)
	a.watchlist = watchlist.NewStore(a.store)
	a.settings = config.NewSettingsStore(a.store)
	a.dispatcher = msg.NewDispatcher(a.scanner, a.watchlist, a.settings, a.cache)
	a.monitor = watchlist.NewMonitor(a.watchlist, a.scanner, a.settings,
		&notify.LogNotifier{Logger: log.Logger}, a.archive, a.metrics, cfg.Monitor.ItemDelay)

	return a, nil
}

func (a *app) close() {
	a.watchlist.Close()
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("closing resource failed")
		}
	}
}
