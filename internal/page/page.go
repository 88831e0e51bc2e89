// Package page drives the page-side lifecycle: finding addresses in a
// continuously mutating document, requesting scans through the message
// protocol, and moving per-occurrence badges through their states. All
// mutable state is owned by one Coordinator; the DOM and timers are
// consumed through capability interfaces so the machine is testable
// against a fake document.
package page

import (
	"github.com/rugscan/rugscan/internal/domain"
)

// BadgeState is the lifecycle position of one address occurrence.
type BadgeState string

const (
	BadgePending BadgeState = "pending" // enqueued, not yet requested
	BadgeLoading BadgeState = "loading" // request in flight
	BadgeLoaded  BadgeState = "loaded"
	BadgeError   BadgeState = "error"
)

// Badge is what the document renders next to an occurrence.
type Badge struct {
	State     BadgeState
	Score     int
	RiskLevel domain.RiskLevel
	Message   string
}

// Element is an opaque handle to a document region that can contain
// addresses. Liveness is re-checked when a result is applied; results
// for removed elements are discarded.
type Element interface {
	ID() string
	Text() string
	Alive() bool
}

// Document is the page capability surface: enumerating regions,
// observing change and scroll events, and rendering badges.
type Document interface {
	Regions() []Element
	OnMutation(func(added []Element))
	OnScroll(func())
	SetBadge(el Element, addr domain.Address, badge Badge)
}
