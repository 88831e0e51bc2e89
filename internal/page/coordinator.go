package page

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/extract"
	"github.com/rugscan/rugscan/internal/msg"
)

// Messenger sends one protocol request and returns its single response.
type Messenger interface {
	Send(ctx context.Context, req msg.Request) msg.Response
}

// Tunables for the scan lifecycle.
const (
	DefaultMutationDebounce = 300 * time.Millisecond
	DefaultScrollDebounce   = 500 * time.Millisecond
	DefaultBatchSize        = 3
	DefaultBatchDelay       = 500 * time.Millisecond
)

// occurrence is one (element, address) sighting awaiting a result.
type occurrence struct {
	el   Element
	addr domain.Address
}

// Coordinator owns all page-side state. It guarantees an address is
// processed at most once per element, and that at most one request per
// address is in flight at any instant regardless of how many elements
// show it.
type Coordinator struct {
	doc       Document
	messenger Messenger
	ctx       context.Context

	mutationDebounce time.Duration
	scrollDebounce   time.Duration
	batchSize        int
	batchDelay       time.Duration

	mu        sync.Mutex
	processed map[string]bool         // element id + address key
	inflight  map[string][]occurrence // address key -> waiters
	queue     []occurrence            // pending, not yet requested

	mutBuf      []Element
	mutTimer    *time.Timer
	scrollTimer *time.Timer

	wake   chan struct{}
	closed chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce overrides the mutation and scroll debounce windows.
func WithDebounce(mutation, scroll time.Duration) Option {
	return func(c *Coordinator) {
		c.mutationDebounce = mutation
		c.scrollDebounce = scroll
	}
}

// WithBatching overrides the request batch size and inter-batch delay.
func WithBatching(size int, delay time.Duration) Option {
	return func(c *Coordinator) {
		c.batchSize = size
		c.batchDelay = delay
	}
}

// NewCoordinator creates a coordinator over a document and messenger.
func NewCoordinator(doc Document, messenger Messenger, opts ...Option) *Coordinator {
	c := &Coordinator{
		doc:              doc,
		messenger:        messenger,
		ctx:              context.Background(),
		mutationDebounce: DefaultMutationDebounce,
		scrollDebounce:   DefaultScrollDebounce,
		batchSize:        DefaultBatchSize,
		batchDelay:       DefaultBatchDelay,
		processed:        make(map[string]bool),
		inflight:         make(map[string][]occurrence),
		wake:             make(chan struct{}, 1),
		closed:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start registers the document observers, runs the initial full scan and
// starts the request worker. It returns immediately; work continues
// until ctx is done.
func (c *Coordinator) Start(ctx context.Context) {
	c.ctx = ctx
	c.doc.OnMutation(c.enqueueMutation)
	c.doc.OnScroll(c.onScroll)

	go c.worker(ctx)
	if c.autoScanEnabled(ctx) {
		c.ScanAll()
	}
}

// autoScanEnabled asks the background settings store whether automatic
// page scanning is on. It is re-read on every trigger so a toggle takes
// effect without a page reload; a failed read leaves scanning on.
func (c *Coordinator) autoScanEnabled(ctx context.Context) bool {
	resp := c.messenger.Send(ctx, msg.Request{Type: msg.TypeSettingsGet})
	if !resp.Success || resp.Settings == nil {
		return true
	}
	return resp.Settings.AutoScan
}

// ScanAll processes every current document region. Re-running over
// overlapping regions is cheap: per-element processed records keep
// previously handled occurrences from re-entering the queue.
func (c *Coordinator) ScanAll() {
	c.scanElements(c.doc.Regions())
}

// enqueueMutation buffers newly added regions; a single timer per
// debounce window drains the buffer in one processing pass, so bursts
// of insertions coalesce instead of nesting callbacks.
func (c *Coordinator) enqueueMutation(added []Element) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mutBuf = append(c.mutBuf, added...)
	if c.mutTimer != nil {
		return
	}
	c.mutTimer = time.AfterFunc(c.mutationDebounce, func() {
		c.mu.Lock()
		batch := c.mutBuf
		c.mutBuf = nil
		c.mutTimer = nil
		c.mu.Unlock()

		if !c.autoScanEnabled(c.ctx) {
			return
		}
		c.scanElements(batch)
	})
}

// onScroll schedules a debounced full scan to catch lazily rendered
// content that never fires a mutation event.
func (c *Coordinator) onScroll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
	}
	c.scrollTimer = time.AfterFunc(c.scrollDebounce, func() {
		c.mu.Lock()
		c.scrollTimer = nil
		c.mu.Unlock()

		if !c.autoScanEnabled(c.ctx) {
			return
		}
		c.ScanAll()
	})
}

// scanElements extracts addresses from each element and enqueues the
// occurrences not yet processed for that element.
func (c *Coordinator) scanElements(els []Element) {
	var woke bool
	for _, el := range els {
		if el == nil || !el.Alive() {
			continue
		}
		for _, addr := range extract.Extract(el.Text()) {
			if c.admit(el, addr) {
				woke = true
			}
		}
	}
	if woke {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// admit records the occurrence and places a pending badge, returning
// false when this element already processed this address.
func (c *Coordinator) admit(el Element, addr domain.Address) bool {
	key := el.ID() + "|" + addr.Key()

	c.mu.Lock()
	if c.processed[key] {
		c.mu.Unlock()
		return false
	}
	c.processed[key] = true
	c.queue = append(c.queue, occurrence{el: el, addr: addr})
	c.mu.Unlock()

	c.doc.SetBadge(el, addr, Badge{State: BadgePending})
	return true
}

// worker drains the queue in fixed-size batches with an inter-batch
// delay, bounding simultaneous load on the background pipeline without
// fully serializing.
func (c *Coordinator) worker(ctx context.Context) {
	for {
		batch := c.takeBatch()
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-c.wake:
				continue
			}
		}

		var wg sync.WaitGroup
		for addrKey := range batch {
			wg.Add(1)
			go func(key string, addr domain.Address) {
				defer wg.Done()
				c.request(ctx, key, addr)
			}(addrKey, batch[addrKey])
		}
		wg.Wait()

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.batchDelay):
		}
	}
}

// takeBatch moves up to batchSize distinct addresses from the queue into
// the in-flight set. Occurrences of an address already in flight attach
// as waiters without issuing another request, so at most one
// network-equivalent request per address exists at any instant.
func (c *Coordinator) takeBatch() map[string]domain.Address {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch := make(map[string]domain.Address)
	var rest []occurrence
	for _, occ := range c.queue {
		key := occ.addr.Key()
		if waiters, flying := c.inflight[key]; flying {
			c.inflight[key] = append(waiters, occ)
			continue
		}
		if _, picked := batch[key]; picked {
			c.inflight[key] = append(c.inflight[key], occ)
			continue
		}
		if len(batch) >= c.batchSize {
			rest = append(rest, occ)
			continue
		}
		batch[key] = occ.addr
		c.inflight[key] = []occurrence{occ}
	}
	c.queue = rest

	for key := range batch {
		for _, occ := range c.inflight[key] {
			c.setBadgeIfAlive(occ, Badge{State: BadgeLoading})
		}
	}
	return batch
}

// request performs one scan request and applies the result to every
// waiter accumulated while it was in flight.
func (c *Coordinator) request(ctx context.Context, key string, addr domain.Address) {
	resp := c.messenger.Send(ctx, msg.Request{
		Type:    msg.TypeScanToken,
		Address: addr.Value,
		Chain:   addr.Chain,
	})

	badge := Badge{State: BadgeError, Message: resp.Error}
	if resp.Success && resp.Data != nil {
		badge = Badge{
			State:     BadgeLoaded,
			Score:     resp.Data.Score,
			RiskLevel: resp.Data.RiskLevel,
		}
	} else {
		log.Debug().Str("token", key).Str("error", resp.Error).Msg("page scan request failed")
	}

	c.mu.Lock()
	waiters := c.inflight[key]
	delete(c.inflight, key)
	c.mu.Unlock()

	for _, occ := range waiters {
		c.setBadgeIfAlive(occ, badge)
	}
}

// setBadgeIfAlive drops results for elements removed from the document
// since the request started.
func (c *Coordinator) setBadgeIfAlive(occ occurrence, badge Badge) {
	if !occ.el.Alive() {
		return
	}
	c.doc.SetBadge(occ.el, occ.addr, badge)
}

// Reset clears all per-page state, used when the document navigates.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processed = make(map[string]bool)
	c.inflight = make(map[string][]occurrence)
	c.queue = nil
	c.mutBuf = nil
	if c.mutTimer != nil {
		c.mutTimer.Stop()
		c.mutTimer = nil
	}
	if c.scrollTimer != nil {
		c.scrollTimer.Stop()
		c.scrollTimer = nil
	}
}
