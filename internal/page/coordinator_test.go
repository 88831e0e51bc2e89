package page

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/msg"
)

type fakeElement struct {
	id    string
	text  string
	alive atomic.Bool
}

func newFakeElement(id, text string) *fakeElement {
	el := &fakeElement{id: id, text: text}
	el.alive.Store(true)
	return el
}

func (e *fakeElement) ID() string   { return e.id }
func (e *fakeElement) Text() string { return e.text }
func (e *fakeElement) Alive() bool  { return e.alive.Load() }

type fakeDocument struct {
	mu       sync.Mutex
	regions  []Element
	badges   map[string][]Badge // element id + address key -> state history
	mutation func(added []Element)
	scroll   func()
}

func newFakeDocument(regions ...Element) *fakeDocument {
	return &fakeDocument{
		regions: regions,
		badges:  make(map[string][]Badge),
	}
}

func (d *fakeDocument) Regions() []Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Element(nil), d.regions...)
}

func (d *fakeDocument) OnMutation(fn func(added []Element)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutation = fn
}

func (d *fakeDocument) OnScroll(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scroll = fn
}

func (d *fakeDocument) SetBadge(el Element, addr domain.Address, badge Badge) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := el.ID() + "|" + addr.Key()
	d.badges[key] = append(d.badges[key], badge)
}

func (d *fakeDocument) addRegion(el Element) {
	d.mu.Lock()
	d.regions = append(d.regions, el)
	fn := d.mutation
	d.mu.Unlock()
	if fn != nil {
		fn([]Element{el})
	}
}

func (d *fakeDocument) lastBadge(el Element, addr domain.Address) (Badge, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	history := d.badges[el.ID()+"|"+addr.Key()]
	if len(history) == 0 {
		return Badge{}, false
	}
	return history[len(history)-1], true
}

func (d *fakeDocument) history(el Element, addr domain.Address) []Badge {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Badge(nil), d.badges[el.ID()+"|"+addr.Key()]...)
}

// gatedMessenger blocks every Send until released and tracks how many
// requests ran, total and concurrently.
type gatedMessenger struct {
	gate     chan struct{}
	sends    atomic.Int64
	inflight atomic.Int64
	peak     atomic.Int64
	respond  func(req msg.Request) msg.Response
	settings domain.Settings
}

func newGatedMessenger() *gatedMessenger {
	return &gatedMessenger{
		gate:     make(chan struct{}),
		settings: domain.DefaultSettings(),
		respond: func(req msg.Request) msg.Response {
			return msg.Response{
				Success: true,
				Data:    &domain.TokenRecord{Score: 85, RiskLevel: domain.RiskSafe},
			}
		},
	}
}

func (m *gatedMessenger) Send(ctx context.Context, req msg.Request) msg.Response {
	if req.Type == msg.TypeSettingsGet {
		settings := m.settings
		return msg.Response{Success: true, Settings: &settings}
	}

	m.sends.Add(1)
	current := m.inflight.Add(1)
	defer m.inflight.Add(-1)
	for {
		prev := m.peak.Load()
		if current <= prev || m.peak.CompareAndSwap(prev, current) {
			break
		}
	}

	select {
	case <-m.gate:
	case <-ctx.Done():
	}
	return m.respond(req)
}

func (m *gatedMessenger) release() { close(m.gate) }

const coordAddr = "0x1234567890123456789012345678901234567890"

func elementText(addr string) string {
	return "new listing " + addr + " trending"
}

func extractedAddr(value string) domain.Address {
	return domain.NewAddress(domain.ChainEthereum, value)
}

func startCoordinator(t *testing.T, doc *fakeDocument, messenger Messenger, opts ...Option) *Coordinator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	opts = append([]Option{
		WithDebounce(5*time.Millisecond, 5*time.Millisecond),
		WithBatching(DefaultBatchSize, time.Millisecond),
	}, opts...)
	c := NewCoordinator(doc, messenger, opts...)
	c.Start(ctx)
	return c
}

func TestCoordinator_SameAddressManyElementsOneRequest(t *testing.T) {
	elements := make([]Element, 5)
	for i := range elements {
		elements[i] = newFakeElement(fmt.Sprintf("el-%d", i), elementText(coordAddr))
	}
	doc := newFakeDocument(elements...)
	messenger := newGatedMessenger()

	startCoordinator(t, doc, messenger)

	require.Eventually(t, func() bool {
		return messenger.sends.Load() >= 1
	}, time.Second, time.Millisecond)

	// Hold the request open long enough for any duplicate to surface.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), messenger.sends.Load(),
		"five visible occurrences must share one in-flight request")

	messenger.release()

	addr := extractedAddr(coordAddr)
	require.Eventually(t, func() bool {
		for _, el := range elements {
			badge, ok := doc.lastBadge(el, addr)
			if !ok || badge.State != BadgeLoaded {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond, "every occurrence receives the shared result")

	assert.Equal(t, int64(1), messenger.sends.Load())
}

func TestCoordinator_BadgeLifecycle(t *testing.T) {
	el := newFakeElement("el-1", elementText(coordAddr))
	doc := newFakeDocument(el)
	messenger := newGatedMessenger()
	messenger.release()

	startCoordinator(t, doc, messenger)

	addr := extractedAddr(coordAddr)
	require.Eventually(t, func() bool {
		badge, ok := doc.lastBadge(el, addr)
		return ok && badge.State == BadgeLoaded
	}, time.Second, time.Millisecond)

	history := doc.history(el, addr)
	require.Len(t, history, 3)
	assert.Equal(t, BadgePending, history[0].State)
	assert.Equal(t, BadgeLoading, history[1].State)
	assert.Equal(t, BadgeLoaded, history[2].State)
	assert.Equal(t, 85, history[2].Score)
	assert.Equal(t, domain.RiskSafe, history[2].RiskLevel)
}

func TestCoordinator_FailedScanShowsErrorBadge(t *testing.T) {
	el := newFakeElement("el-1", elementText(coordAddr))
	doc := newFakeDocument(el)
	messenger := newGatedMessenger()
	messenger.respond = func(req msg.Request) msg.Response {
		return msg.Fail(errors.New("all data sources failed"))
	}
	messenger.release()

	startCoordinator(t, doc, messenger)

	addr := extractedAddr(coordAddr)
	require.Eventually(t, func() bool {
		badge, ok := doc.lastBadge(el, addr)
		return ok && badge.State == BadgeError
	}, time.Second, time.Millisecond)

	badge, _ := doc.lastBadge(el, addr)
	assert.Equal(t, "all data sources failed", badge.Message)
}

func TestCoordinator_RescanDoesNotRepeatProcessedElements(t *testing.T) {
	el := newFakeElement("el-1", elementText(coordAddr))
	doc := newFakeDocument(el)
	messenger := newGatedMessenger()
	messenger.release()

	c := startCoordinator(t, doc, messenger)

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 1
	}, time.Second, time.Millisecond)

	c.ScanAll()
	c.ScanAll()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int64(1), messenger.sends.Load(),
		"a processed (element, address) pair never re-enters the queue")
}

func TestCoordinator_RemovedElementResultDiscarded(t *testing.T) {
	el := newFakeElement("el-1", elementText(coordAddr))
	doc := newFakeDocument(el)
	messenger := newGatedMessenger()

	startCoordinator(t, doc, messenger)

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 1
	}, time.Second, time.Millisecond)

	// The element leaves the document while its request is in flight.
	el.alive.Store(false)
	messenger.release()
	time.Sleep(50 * time.Millisecond)

	badge, ok := doc.lastBadge(el, extractedAddr(coordAddr))
	require.True(t, ok)
	assert.NotEqual(t, BadgeLoaded, badge.State,
		"results for removed elements are dropped")
}

func TestCoordinator_BatchSizeBoundsConcurrency(t *testing.T) {
	doc := newFakeDocument()
	messenger := newGatedMessenger()

	c := startCoordinator(t, doc, messenger, WithBatching(3, time.Millisecond))

	// Populate after the worker is idle so the whole queue is visible
	// when the first batch is taken.
	time.Sleep(10 * time.Millisecond)
	doc.mu.Lock()
	for i := 0; i < 6; i++ {
		addr := fmt.Sprintf("0x%040d", i+1)
		doc.regions = append(doc.regions, newFakeElement(fmt.Sprintf("el-%d", i), elementText(addr)))
	}
	doc.mu.Unlock()
	c.ScanAll()

	require.Eventually(t, func() bool {
		return messenger.inflight.Load() == 3
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(3), messenger.inflight.Load(),
		"the fourth address waits for the batch to finish")

	messenger.release()

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 6
	}, time.Second, time.Millisecond)
	assert.LessOrEqual(t, messenger.peak.Load(), int64(3))
}

func TestCoordinator_MutationsDebouncedAndProcessed(t *testing.T) {
	doc := newFakeDocument()
	messenger := newGatedMessenger()
	messenger.release()

	startCoordinator(t, doc, messenger)

	first := newFakeElement("el-1", elementText(coordAddr))
	second := newFakeElement("el-2", elementText("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"))
	doc.addRegion(first)
	doc.addRegion(second)

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 2
	}, time.Second, time.Millisecond, "both buffered mutations drain after the debounce window")
}

func TestCoordinator_ScrollTriggersRescan(t *testing.T) {
	doc := newFakeDocument()
	messenger := newGatedMessenger()
	messenger.release()

	startCoordinator(t, doc, messenger)

	// Content rendered without a mutation event, picked up on scroll.
	doc.mu.Lock()
	doc.regions = append(doc.regions, newFakeElement("el-1", elementText(coordAddr)))
	scroll := doc.scroll
	doc.mu.Unlock()
	require.NotNil(t, scroll)
	scroll()

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestCoordinator_AutoScanOffSuppressesAutomaticScans(t *testing.T) {
	el := newFakeElement("el-1", elementText(coordAddr))
	doc := newFakeDocument(el)
	messenger := newGatedMessenger()
	messenger.release()
	messenger.settings.AutoScan = false

	c := startCoordinator(t, doc, messenger)

	// Initial scan, a mutation and a scroll, all with auto-scan off.
	doc.addRegion(newFakeElement("el-2", elementText("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")))
	doc.mu.Lock()
	scroll := doc.scroll
	doc.mu.Unlock()
	scroll()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), messenger.sends.Load(),
		"no automatic trigger may scan while auto-scan is off")
	_, badged := doc.lastBadge(el, extractedAddr(coordAddr))
	assert.False(t, badged)

	// An explicit rescan is not an automatic trigger and still works.
	c.ScanAll()
	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestCoordinator_ResetAllowsReprocessing(t *testing.T) {
	el := newFakeElement("el-1", elementText(coordAddr))
	doc := newFakeDocument(el)
	messenger := newGatedMessenger()
	messenger.release()

	c := startCoordinator(t, doc, messenger)

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 1
	}, time.Second, time.Millisecond)

	c.Reset()
	c.ScanAll()

	require.Eventually(t, func() bool {
		return messenger.sends.Load() == 2
	}, time.Second, time.Millisecond)
}
