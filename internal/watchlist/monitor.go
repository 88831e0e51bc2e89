package watchlist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/config"
	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/metrics"
	"github.com/rugscan/rugscan/internal/notify"
	"github.com/rugscan/rugscan/internal/storage/postgres"
)

// TokenScanner is the slice of the scan pipeline the monitor needs.
type TokenScanner interface {
	Scan(ctx context.Context, addr domain.Address, useCache bool) (*domain.TokenRecord, error)
}

// Monitor re-evaluates watched tokens on a recurring timer and alerts on
// material changes against each item's baseline.
type Monitor struct {
	store     *Store
	scanner   TokenScanner
	settings  *config.SettingsStore
	notifier  notify.Notifier
	archive   *postgres.AlertArchive
	metrics   *metrics.Registry
	itemDelay time.Duration

	mu      sync.Mutex
	running bool
}

// NewMonitor wires a monitor. archive may be nil.
func NewMonitor(store *Store, scanner TokenScanner, settings *config.SettingsStore,
	notifier notify.Notifier, archive *postgres.AlertArchive, reg *metrics.Registry,
	itemDelay time.Duration) *Monitor {
	if itemDelay <= 0 {
		itemDelay = 2 * time.Second
	}
	return &Monitor{
		store:     store,
		scanner:   scanner,
		settings:  settings,
		notifier:  notifier,
		archive:   archive,
		metrics:   reg,
		itemDelay: itemDelay,
	}
}

// Run polls on the interval from settings until ctx is done. The
// interval is re-read each cycle so a settings update takes effect
// without a restart.
func (m *Monitor) Run(ctx context.Context) {
	for {
		settings := m.settings.Get(ctx)
		interval := time.Duration(settings.MonitorIntervalMinutes) * time.Minute

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		m.RunCycle(ctx)
	}
}

// RunCycle executes one poll over all items. Overlap-guarded: a slow
// cycle causes the next tick to be skipped rather than doubled up.
// Items are scanned serially with a fixed inter-item delay to respect
// the shared rate limiter; one item failing never aborts the rest.
func (m *Monitor) RunCycle(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		log.Warn().Msg("previous poll cycle still running, skipping")
		return
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	settings := m.settings.Get(ctx)
	items := m.store.Items(ctx)
	m.metrics.WatchlistSize.Set(float64(len(items)))

	log.Info().Int("items", len(items)).Msg("watchlist poll cycle started")

	for i, item := range items {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.itemDelay):
			}
		}
		if err := m.pollItem(ctx, item, settings); err != nil {
			log.Error().Err(err).Str("token", item.Address.Key()).Msg("poll failed for item")
		}
	}
}

// pollItem rescans one item (cache bypassed), adopts a baseline on the
// first successful poll, otherwise diffs against the stored baseline.
func (m *Monitor) pollItem(ctx context.Context, item domain.WatchlistItem, settings domain.Settings) error {
	record, err := m.scanner.Scan(ctx, item.Address, false)
	if err != nil {
		return err
	}

	if item.Baseline == nil {
		item.Baseline = BaselineFrom(record)
		item.LastChanges = nil
	} else {
		changes := DetectChanges(*item.Baseline, record)
		if c := thresholdCrossing(*item.Baseline, record, settings.RiskThreshold); c != nil && !hasField(changes, "score") {
			changes = append(changes, *c)
		}
		item.LastChanges = changes
		m.alert(ctx, item, record, changes, settings)

		// Baseline refresh after an alert is opt-in; the default keeps
		// the original reference so slow erosion keeps accumulating.
		if settings.RefreshBaselineOnAlert && len(changes) > 0 {
			item.Baseline = BaselineFrom(record)
		}
	}

	item.TokenName = record.TokenName
	item.TokenSymbol = record.TokenSymbol
	item.LastScore = record.Score
	item.LastRiskTier = record.RiskLevel
	item.LastMarket = record.Market
	item.LastUpdated = record.Timestamp

	return m.store.Update(ctx, item)
}

func hasField(changes []domain.Change, field string) bool {
	for _, c := range changes {
		if c.Field == field {
			return true
		}
	}
	return false
}

// alert emits one notification per qualifying change. Info-level changes
// never alert; nothing alerts when notifications are disabled.
func (m *Monitor) alert(ctx context.Context, item domain.WatchlistItem, record *domain.TokenRecord,
	changes []domain.Change, settings domain.Settings) {
	for _, change := range changes {
		if change.Severity == domain.FlagInfo {
			continue
		}
		m.metrics.AlertsEmitted.WithLabelValues(string(change.Severity)).Inc()

		if !settings.NotificationsEnabled {
			continue
		}
		name := record.TokenSymbol
		if name == "" {
			name = item.Address.Value
		}
		a := notify.NewAlert(item.Address, name, change)
		if err := m.notifier.Notify(ctx, a); err != nil {
			log.Warn().Err(err).Str("alert_id", a.ID).Msg("notification delivery failed")
		}
		if err := m.archive.Record(ctx, a.ID, item.Address, change); err != nil {
			log.Warn().Err(err).Str("alert_id", a.ID).Msg("alert archive write failed")
		}
	}
}
