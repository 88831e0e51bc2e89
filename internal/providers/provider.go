// Package providers holds the external data-source clients. Every
// provider is a black box: responses are partially populated JSON and
// any provider can fail or rate-limit independently of the others.
package providers

import (
	"context"

	"github.com/rugscan/rugscan/internal/domain"
)

// Market supplies price, liquidity, volume and pair metadata. Queried
// for every chain.
type Market interface {
	Name() string
	FetchMarket(ctx context.Context, addr domain.Address) (*domain.MarketReport, error)
}

// Security supplies honeypot, tax, ownership and holder data. Which
// implementations apply depends on the chain family.
type Security interface {
	Name() string
	Supports(family domain.Family) bool
	FetchSecurity(ctx context.Context, addr domain.Address) (*domain.SecurityReport, error)
}
