// Package msg defines the request/response protocol every component
// pair communicates through. A request yields at most one response;
// there is no other channel between the page side and the background
// side.
package msg

import (
	"github.com/rugscan/rugscan/internal/domain"
)

// Type enumerates the protocol operations.
type Type string

const (
	TypeScanToken       Type = "SCAN_TOKEN"
	TypeWatchlistAdd    Type = "WATCHLIST_ADD"
	TypeWatchlistRemove Type = "WATCHLIST_REMOVE"
	TypeWatchlistGet    Type = "WATCHLIST_GET"
	TypeSettingsGet     Type = "SETTINGS_GET"
	TypeSettingsUpdate  Type = "SETTINGS_UPDATE"
	TypeClearCache      Type = "CLEAR_CACHE"
)

// Request is one protocol message. Fields beyond Type are optional and
// operation-specific.
type Request struct {
	Type     Type                `json:"type"`
	Address  string              `json:"address,omitempty"`
	Chain    domain.Chain        `json:"chain,omitempty"`
	UseCache *bool               `json:"useCache,omitempty"`
	Token    *domain.TokenRecord `json:"token,omitempty"`
	Updates  map[string]any      `json:"updates,omitempty"`
}

// Response is the single reply to a request.
type Response struct {
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
	Data     *domain.TokenRecord    `json:"data,omitempty"`
	Items    []domain.WatchlistItem `json:"items,omitempty"`
	Settings *domain.Settings       `json:"settings,omitempty"`
}

// Ok wraps a successful empty response.
func Ok() Response {
	return Response{Success: true}
}

// Fail wraps an error response. A user-requested operation always gets
// an explicit error, never a silent no-op.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}
