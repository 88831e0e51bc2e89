package watchlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscan/rugscan/internal/config"
	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/metrics"
	"github.com/rugscan/rugscan/internal/notify"
	"github.com/rugscan/rugscan/internal/storage/memory"
)

type scriptedScanner struct {
	mu      sync.Mutex
	records map[string]*domain.TokenRecord
	errs    map[string]error
	cached  []bool
}

func (s *scriptedScanner) Scan(ctx context.Context, addr domain.Address, useCache bool) (*domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = append(s.cached, useCache)

	if err, ok := s.errs[addr.Key()]; ok {
		return nil, err
	}
	record, ok := s.records[addr.Key()]
	if !ok {
		return nil, errors.New("no scripted record")
	}
	out := *record
	out.Timestamp = time.Now()
	return &out, nil
}

func (s *scriptedScanner) set(addr domain.Address, record *domain.TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Address = addr
	s.records[addr.Key()] = record
}

type capturingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (n *capturingNotifier) Notify(ctx context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func (n *capturingNotifier) all() []notify.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Alert(nil), n.alerts...)
}

type monitorFixture struct {
	store    *Store
	scanner  *scriptedScanner
	notifier *capturingNotifier
	settings *config.SettingsStore
	monitor  *Monitor
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	kv := memory.New()
	store := NewStore(kv)
	t.Cleanup(store.Close)

	scanner := &scriptedScanner{
		records: make(map[string]*domain.TokenRecord),
		errs:    make(map[string]error),
	}
	notifier := &capturingNotifier{}
	settings := config.NewSettingsStore(kv)
	monitor := NewMonitor(store, scanner, settings, notifier, nil,
		metrics.NewRegistry(), time.Millisecond)

	return &monitorFixture{
		store: store, scanner: scanner, notifier: notifier,
		settings: settings, monitor: monitor,
	}
}

func watchedAddr() domain.Address {
	return domain.NewAddress(domain.ChainEthereum, "0x1234567890123456789012345678901234567890")
}

func TestMonitor_AdoptsBaselineOnFirstPoll(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{Address: addr}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 75, RiskLevel: domain.RiskWarning})

	f.monitor.RunCycle(ctx)

	items := f.store.Items(ctx)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Baseline)
	assert.Equal(t, 75, items[0].Baseline.Score)
	assert.Empty(t, f.notifier.all(), "baseline adoption must not alert")
}

func TestMonitor_BypassesCache(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{Address: addr}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 75})

	f.monitor.RunCycle(ctx)

	require.NotEmpty(t, f.scanner.cached)
	for _, used := range f.scanner.cached {
		assert.False(t, used, "poll scans must bypass the cache read")
	}
}

func TestMonitor_AlertsOnScoreDrop(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 80},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 55, RiskLevel: domain.RiskWarning})

	f.monitor.RunCycle(ctx)

	alerts := f.notifier.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.FlagCritical, alerts[0].Severity)
	assert.NotEmpty(t, alerts[0].ID)
}

func TestMonitor_AlertsOnRiskThresholdCrossing(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	_, err := f.settings.Update(ctx, map[string]any{"riskThreshold": 70})
	require.NoError(t, err)

	// A seven-point slide is under the fixed score-drop delta but takes
	// the token below the user's cutoff.
	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 75},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 68, RiskLevel: domain.RiskWarning})

	f.monitor.RunCycle(ctx)

	alerts := f.notifier.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.FlagWarning, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "threshold")
}

func TestMonitor_NoThresholdAlertWhileAlreadyBelow(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	_, err := f.settings.Update(ctx, map[string]any{"riskThreshold": 70})
	require.NoError(t, err)

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 40},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 35})

	f.monitor.RunCycle(ctx)
	assert.Empty(t, f.notifier.all(), "a token already under the cutoff must not re-alert each poll")
}

func TestMonitor_ScoreDropAndCrossingAlertOnce(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 90},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 40, RiskLevel: domain.RiskDanger})

	f.monitor.RunCycle(ctx)

	alerts := f.notifier.all()
	require.Len(t, alerts, 1, "the score-drop alert already covers the crossing")
	assert.Equal(t, domain.FlagCritical, alerts[0].Severity)
}

func TestMonitor_InfoChangesNeverAlert(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 50},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 90, RiskLevel: domain.RiskSafe})

	f.monitor.RunCycle(ctx)

	assert.Empty(t, f.notifier.all())

	items := f.store.Items(ctx)
	require.Len(t, items, 1)
	assert.Len(t, items[0].LastChanges, 1, "the info change is still recorded on the item")
}

func TestMonitor_DisabledNotificationsSuppressAlerts(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	_, err := f.settings.Update(ctx, map[string]any{"notificationsEnabled": false})
	require.NoError(t, err)

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 80},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 20})

	f.monitor.RunCycle(ctx)
	assert.Empty(t, f.notifier.all())
}

func TestMonitor_BaselineSurvivesChanges(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 80},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 55})

	f.monitor.RunCycle(ctx)
	f.scanner.set(addr, &domain.TokenRecord{Score: 50})
	f.monitor.RunCycle(ctx)

	items := f.store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 80, items[0].Baseline.Score,
		"baseline must keep the original reference point")
	assert.Len(t, f.notifier.all(), 2, "each cycle diffs against the original baseline")
}

func TestMonitor_BaselineRefreshOptIn(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	_, err := f.settings.Update(ctx, map[string]any{"refreshBaselineOnAlert": true})
	require.NoError(t, err)

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{
		Address:  addr,
		Baseline: &domain.Baseline{Score: 80},
	}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 55})

	f.monitor.RunCycle(ctx)

	items := f.store.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 55, items[0].Baseline.Score)
}

func TestMonitor_OneFailingItemDoesNotAbortCycle(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()

	bad := domain.NewAddress(domain.ChainEthereum, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	good := domain.NewAddress(domain.ChainEthereum, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{Address: bad}))
	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{Address: good}))

	f.scanner.errs[bad.Key()] = errors.New("provider meltdown")
	f.scanner.set(good, &domain.TokenRecord{Score: 64})

	f.monitor.RunCycle(ctx)

	for _, item := range f.store.Items(ctx) {
		if item.Address.Key() == good.Key() {
			assert.NotNil(t, item.Baseline, "healthy item should still have been polled")
		}
	}
}

func TestMonitor_OverlappingCyclesSkip(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	addr := watchedAddr()

	require.NoError(t, f.store.Add(ctx, domain.WatchlistItem{Address: addr}))
	f.scanner.set(addr, &domain.TokenRecord{Score: 70})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.monitor.RunCycle(ctx)
		}()
	}
	wg.Wait()

	// The overlap guard makes concurrent cycles collapse; the item is
	// intact and was polled at least once.
	items := f.store.Items(ctx)
	require.Len(t, items, 1)
	assert.NotNil(t, items[0].Baseline)
}
