package msg

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/cache"
	"github.com/rugscan/rugscan/internal/config"
	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/scan"
	"github.com/rugscan/rugscan/internal/watchlist"
)

// Scanner is the scan capability the dispatcher routes to.
type Scanner interface {
	Scan(ctx context.Context, addr domain.Address, useCache bool) (*domain.TokenRecord, error)
}

// Dispatcher routes protocol requests to the owning components.
type Dispatcher struct {
	scanner   Scanner
	watchlist *watchlist.Store
	settings  *config.SettingsStore
	cache     *cache.Manager
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(scanner Scanner, wl *watchlist.Store, settings *config.SettingsStore, cacheMgr *cache.Manager) *Dispatcher {
	return &Dispatcher{scanner: scanner, watchlist: wl, settings: settings, cache: cacheMgr}
}

// Dispatch handles one request and returns its single response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	switch req.Type {
	case TypeScanToken:
		return d.scanToken(ctx, req)
	case TypeWatchlistAdd:
		return d.watchlistAdd(ctx, req)
	case TypeWatchlistRemove:
		return d.watchlistRemove(ctx, req)
	case TypeWatchlistGet:
		return Response{Success: true, Items: d.watchlist.Items(ctx)}
	case TypeSettingsGet:
		settings := d.settings.Get(ctx)
		return Response{Success: true, Settings: &settings}
	case TypeSettingsUpdate:
		return d.settingsUpdate(ctx, req)
	case TypeClearCache:
		d.cache.Clear(ctx)
		return Ok()
	default:
		return Fail(fmt.Errorf("unknown request type %q", req.Type))
	}
}

func (d *Dispatcher) address(req Request) domain.Address {
	chain := req.Chain
	if chain == "" {
		chain = domain.DefaultEVMChain
	}
	return domain.NewAddress(chain, req.Address)
}

func (d *Dispatcher) scanToken(ctx context.Context, req Request) Response {
	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	record, err := d.scanner.Scan(ctx, d.address(req), useCache)
	if err != nil {
		log.Warn().Err(err).Str("address", req.Address).Msg("scan request failed")
		return Fail(err)
	}
	return Response{Success: true, Data: record}
}

// watchlistAdd pins a token. When the request carries a fresh record the
// baseline snapshots it now; otherwise the first poll adopts one.
func (d *Dispatcher) watchlistAdd(ctx context.Context, req Request) Response {
	addr := d.address(req)
	if err := scan.ValidateAddress(addr); err != nil {
		return Fail(err)
	}
	item := domain.WatchlistItem{
		Address: addr,
		AddedAt: time.Now(),
	}
	if req.Token != nil {
		item.TokenName = req.Token.TokenName
		item.TokenSymbol = req.Token.TokenSymbol
		item.LastScore = req.Token.Score
		item.LastRiskTier = req.Token.RiskLevel
		item.LastMarket = req.Token.Market
		item.LastUpdated = req.Token.Timestamp
		item.Baseline = watchlist.BaselineFrom(req.Token)
	}

	if err := d.watchlist.Add(ctx, item); err != nil {
		return Fail(err)
	}
	return Response{Success: true, Items: d.watchlist.Items(ctx)}
}

func (d *Dispatcher) watchlistRemove(ctx context.Context, req Request) Response {
	if err := d.watchlist.Remove(ctx, d.address(req)); err != nil {
		return Fail(err)
	}
	return Response{Success: true, Items: d.watchlist.Items(ctx)}
}

func (d *Dispatcher) settingsUpdate(ctx context.Context, req Request) Response {
	settings, err := d.settings.Update(ctx, req.Updates)
	if err != nil {
		return Fail(err)
	}
	return Response{Success: true, Settings: &settings}
}
