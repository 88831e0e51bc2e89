// Package scan orchestrates one token analysis: cache lookup, rate-
// limited concurrent source fetches, priority merge, scoring and cache
// store. One source failing never aborts the others; only all sources
// failing fails the scan.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rugscan/rugscan/internal/cache"
	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/extract"
	"github.com/rugscan/rugscan/internal/metrics"
	"github.com/rugscan/rugscan/internal/providers"
	"github.com/rugscan/rugscan/internal/score"
)

// newPairWindow is how long a freshly created trading pair keeps its
// warning flag. Most rug pulls happen within days of pair creation.
const newPairWindow = 7 * 24 * time.Hour

// ErrAllSourcesFailed reports that no source produced any data; the
// caller must surface a scan failure rather than score emptiness.
var ErrAllSourcesFailed = errors.New("scan: all data sources failed")

// ValidationError rejects a malformed address before any network call.
type ValidationError struct {
	Address string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Address, e.Reason)
}

// Scanner runs the fetch-merge-score pipeline.
type Scanner struct {
	market   providers.Market
	security []providers.Security
	cache    *cache.Manager
	metrics  *metrics.Registry
	now      func() time.Time
}

// NewScanner wires a scanner. The security slice is priority-ordered:
// for a chain family served by two sources the earlier one is primary.
func NewScanner(market providers.Market, security []providers.Security, cacheMgr *cache.Manager, reg *metrics.Registry) *Scanner {
	return &Scanner{
		market:   market,
		security: security,
		cache:    cacheMgr,
		metrics:  reg,
		now:      time.Now,
	}
}

// Scan analyzes one token. useCache=false (watchlist polling, explicit
// refresh) bypasses the cache read but still stores the fresh result.
func (s *Scanner) Scan(ctx context.Context, addr domain.Address, useCache bool) (*domain.TokenRecord, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}

	if useCache {
		if record := s.cache.Get(addr.Key()); record != nil {
			s.metrics.CacheHits.Inc()
			return record, nil
		}
		s.metrics.CacheMisses.Inc()
	}

	input, err := s.fetch(ctx, addr)
	if err != nil {
		s.metrics.ScansTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	result := score.Score(input)
	record := domain.TokenRecord{
		Address:     addr,
		TokenName:   input.Market.TokenName,
		TokenSymbol: input.Market.TokenSymbol,
		Score:       result.Score,
		RiskLevel:   result.RiskLevel,
		Breakdown:   result.Breakdown,
		Flags:       result.Flags,
		Market:      input.Market,
		Timestamp:   s.now(),
	}
	if input.HasSecurity {
		record.Security = input.Security
	}
	if input.HasMarket {
		if age := record.Market.PairAge(record.Timestamp); age > 0 && age < newPairWindow {
			record.Flags = append(record.Flags, domain.Flag{
				Severity: domain.FlagWarning,
				Message:  fmt.Sprintf("Trading pair is only %s old", formatPairAge(age)),
			})
		}
	}

	s.cache.Set(ctx, addr.Key(), record)
	s.metrics.ScansTotal.WithLabelValues(string(record.RiskLevel)).Inc()
	return &record, nil
}

// fetch queries all applicable sources concurrently and merges the
// results. Per-source errors are logged and isolated.
func (s *Scanner) fetch(ctx context.Context, addr domain.Address) (*score.Input, error) {
	applicable := s.securityFor(addr.Chain.Family())

	var (
		market     *domain.MarketReport
		secReports = make([]*domain.SecurityReport, len(applicable))
		errs       = make([]error, 1+len(applicable))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		m, err := s.market.FetchMarket(gctx, addr)
		s.metrics.ProviderDuration.WithLabelValues(s.market.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			errs[0] = err
			s.sourceFailed(s.market.Name(), addr, err)
			return nil
		}
		market = m
		return nil
	})
	for i, provider := range applicable {
		i, provider := i, provider
		g.Go(func() error {
			start := time.Now()
			report, err := provider.FetchSecurity(gctx, addr)
			s.metrics.ProviderDuration.WithLabelValues(provider.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				errs[1+i] = err
				s.sourceFailed(provider.Name(), addr, err)
				return nil
			}
			secReports[i] = report
			return nil
		})
	}
	g.Wait()

	var merged *domain.SecurityReport
	for _, report := range secReports {
		merged = mergeSecurity(merged, report)
	}

	if market == nil && merged == nil {
		return nil, fmt.Errorf("%w: %s", ErrAllSourcesFailed, errors.Join(errs...))
	}

	input := &score.Input{}
	if market != nil {
		input.Market = *market
		input.HasMarket = true
	}
	if merged != nil {
		input.Security = *merged
		input.HasSecurity = true
	}
	return input, nil
}

func (s *Scanner) securityFor(family domain.Family) []providers.Security {
	var out []providers.Security
	for _, provider := range s.security {
		if provider.Supports(family) {
			out = append(out, provider)
		}
	}
	return out
}

func formatPairAge(age time.Duration) string {
	switch {
	case age < time.Hour:
		return "minutes"
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(age.Hours()))
	default:
		return fmt.Sprintf("%d days", int(age.Hours()/24))
	}
}

func (s *Scanner) sourceFailed(provider string, addr domain.Address, err error) {
	s.metrics.ProviderErrors.WithLabelValues(provider).Inc()
	log.Warn().
		Err(err).
		Str("provider", provider).
		Str("token", addr.Key()).
		Msg("source fetch failed")
}

// ValidateAddress checks the address shape for the claimed chain
// family. Every entry point that accepts a user-supplied address runs
// it before the address can reach the network or the watchlist.
func ValidateAddress(addr domain.Address) error {
	if addr.IsZero() {
		return &ValidationError{Address: "", Reason: "empty"}
	}
	if !addr.Chain.Valid() {
		return &ValidationError{Address: addr.Value, Reason: fmt.Sprintf("unknown chain %q", addr.Chain)}
	}
	switch addr.Chain.Family() {
	case domain.FamilyEVM:
		if len(addr.Value) != 42 || addr.Value[:2] != "0x" {
			return &ValidationError{Address: addr.Value, Reason: "not a 0x-prefixed 40-hex address"}
		}
		for _, r := range addr.Value[2:] {
			if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
				return &ValidationError{Address: addr.Value, Reason: "non-hex character"}
			}
		}
	case domain.FamilySolana:
		if !extract.ValidSolanaAddress(addr.Value) {
			return &ValidationError{Address: addr.Value, Reason: "not a 32-byte base58 payload"}
		}
	}
	return nil
}
