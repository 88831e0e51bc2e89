package watchlist

import (
	"fmt"

	"github.com/rugscan/rugscan/internal/domain"
)

// Change-detection thresholds. Diffing is always baseline-vs-current,
// never previous-poll-vs-current, so slow erosion accumulates against
// the original reference point.
const (
	ScoreDelta          = 15   // absolute score points
	LiquidityDropRatio  = 0.10 // relative drop
	HolderConcentration = 10   // absolute percentage points
)

// DetectChanges diffs a baseline against a freshly scored record using
// the fixed thresholds. Pure function; returns nil when nothing crossed
// a threshold.
func DetectChanges(baseline domain.Baseline, record *domain.TokenRecord) []domain.Change {
	if record == nil {
		return nil
	}

	var changes []domain.Change

	if delta := record.Score - baseline.Score; delta <= -ScoreDelta {
		changes = append(changes, domain.Change{
			Field:    "score",
			Severity: domain.FlagCritical,
			Old:      float64(baseline.Score),
			New:      float64(record.Score),
			Message:  fmt.Sprintf("Risk score dropped from %d to %d", baseline.Score, record.Score),
		})
	} else if delta >= ScoreDelta {
		changes = append(changes, domain.Change{
			Field:    "score",
			Severity: domain.FlagInfo,
			Old:      float64(baseline.Score),
			New:      float64(record.Score),
			Message:  fmt.Sprintf("Risk score improved from %d to %d", baseline.Score, record.Score),
		})
	}

	if baseline.LiquidityUSD > 0 {
		drop := (baseline.LiquidityUSD - record.Market.LiquidityUSD) / baseline.LiquidityUSD
		if drop > LiquidityDropRatio {
			changes = append(changes, domain.Change{
				Field:    "liquidity",
				Severity: domain.FlagCritical,
				Old:      baseline.LiquidityUSD,
				New:      record.Market.LiquidityUSD,
				Message: fmt.Sprintf("Liquidity dropped %.1f%% from $%.0f to $%.0f",
					drop*100, baseline.LiquidityUSD, record.Market.LiquidityUSD),
			})
		}
	}

	if !baseline.IsHoneypot && record.Security.IsHoneypot {
		changes = append(changes, domain.Change{
			Field:    "honeypot",
			Severity: domain.FlagCritical,
			Old:      0,
			New:      1,
			Message:  "Token turned into a honeypot: selling now blocked",
		})
	}

	if inc := record.Security.TopHolderPct - baseline.TopHolderPct; inc > HolderConcentration {
		changes = append(changes, domain.Change{
			Field:    "topHolderPercent",
			Severity: domain.FlagWarning,
			Old:      baseline.TopHolderPct,
			New:      record.Security.TopHolderPct,
			Message: fmt.Sprintf("Largest holder grew from %.1f%% to %.1f%% of supply",
				baseline.TopHolderPct, record.Security.TopHolderPct),
		})
	}

	return changes
}

// BaselineFrom captures the reference snapshot from a scored record.
// thresholdCrossing reports the record sliding below the user's risk
// threshold when the baseline sat at or above it. The fixed-delta score
// rule misses a slow slide past the cutoff; this catches it.
func thresholdCrossing(baseline domain.Baseline, record *domain.TokenRecord, threshold int) *domain.Change {
	if record == nil || threshold <= 0 {
		return nil
	}
	if baseline.Score < threshold || record.Score >= threshold {
		return nil
	}
	return &domain.Change{
		Field:    "riskThreshold",
		Severity: domain.FlagWarning,
		Old:      float64(baseline.Score),
		New:      float64(record.Score),
		Message:  fmt.Sprintf("Risk score %d fell below your alert threshold of %d", record.Score, threshold),
	}
}

func BaselineFrom(record *domain.TokenRecord) *domain.Baseline {
	return &domain.Baseline{
		Score:        record.Score,
		LiquidityUSD: record.Market.LiquidityUSD,
		HolderCount:  record.Security.HolderCount,
		TopHolderPct: record.Security.TopHolderPct,
		IsHoneypot:   record.Security.IsHoneypot,
		CapturedAt:   record.Timestamp,
	}
}
