// Package score turns a merged token report into a composite 0-100 risk
// score with a per-factor breakdown and advisory flags. Scoring is a
// pure function of its input: no clock, no I/O, no failure mode. Any
// input, including nil, produces a complete valid result.
package score

import (
	"math"

	"github.com/rugscan/rugscan/internal/domain"
)

// Factor weights. They sum to 1.0; the composite is the weighted sum of
// per-factor scores rounded and clamped to [0,100].
const (
	WeightLiquidity    = 0.25
	WeightOwnership    = 0.15
	WeightHoneypot     = 0.20
	WeightHolders      = 0.15
	WeightTax          = 0.10
	WeightVerification = 0.10
	WeightActivity     = 0.05
)

// Risk level thresholds on the composite score.
const (
	SafeThreshold    = 80
	WarningThreshold = 50
)

// Neutral is the per-factor score assumed when a source reported nothing
// for that factor.
const neutral = 50

// Breakdown factor names, stable across records.
const (
	FactorLiquidity    = "liquidityLock"
	FactorOwnership    = "ownership"
	FactorHoneypot     = "honeypotCheck"
	FactorHolders      = "holderDistribution"
	FactorTax          = "tax"
	FactorVerification = "verification"
	FactorActivity     = "activity"
)

// Input is the scorer's view of a merged report. All fields optional;
// HasSecurity/HasMarket distinguish "source answered with zeros" from
// "no source answered".
type Input struct {
	Security    domain.SecurityReport
	Market      domain.MarketReport
	HasSecurity bool
	HasMarket   bool
}

// Result is a complete scoring outcome.
type Result struct {
	Score     int
	RiskLevel domain.RiskLevel
	Breakdown map[string]int
	Flags     []domain.Flag
}

// Score computes the composite risk score. Total over all inputs: a nil
// input scores every factor at the neutral baseline.
func Score(in *Input) Result {
	if in == nil {
		in = &Input{}
	}

	breakdown := map[string]int{
		FactorLiquidity:    liquidityScore(in),
		FactorOwnership:    ownershipScore(in),
		FactorHoneypot:     honeypotScore(in),
		FactorHolders:      holdersScore(in),
		FactorTax:          taxScore(in),
		FactorVerification: verificationScore(in),
		FactorActivity:     activityScore(in),
	}

	composite := float64(breakdown[FactorLiquidity])*WeightLiquidity +
		float64(breakdown[FactorOwnership])*WeightOwnership +
		float64(breakdown[FactorHoneypot])*WeightHoneypot +
		float64(breakdown[FactorHolders])*WeightHolders +
		float64(breakdown[FactorTax])*WeightTax +
		float64(breakdown[FactorVerification])*WeightVerification +
		float64(breakdown[FactorActivity])*WeightActivity

	total := clamp(int(math.Round(composite)))

	return Result{
		Score:     total,
		RiskLevel: LevelFor(total),
		Breakdown: breakdown,
		Flags:     Flags(in),
	}
}

// LevelFor maps a composite score onto a risk level. Pure step function.
func LevelFor(score int) domain.RiskLevel {
	switch {
	case score >= SafeThreshold:
		return domain.RiskSafe
	case score >= WarningThreshold:
		return domain.RiskWarning
	default:
		return domain.RiskDanger
	}
}

// liquidityScore rewards locked or burned LP, lock duration and the
// locked share of the pool, with a floor bump for deep pools.
func liquidityScore(in *Input) int {
	if !in.HasSecurity && !in.HasMarket {
		return neutral
	}
	sec := in.Security

	s := 0
	switch {
	case sec.LPBurned:
		s = 100
	case sec.LiquidityLocked:
		s = 70
		switch {
		case sec.LockDurationDays >= 365:
			s += 20
		case sec.LockDurationDays >= 90:
			s += 10
		case sec.LockDurationDays >= 30:
			s += 5
		}
		if sec.LockedPercent >= 95 {
			s += 10
		}
	default:
		if !in.HasSecurity {
			return marketOnlyLiquidityScore(in.Market)
		}
		s = 20
	}

	if in.HasMarket && in.Market.LiquidityUSD >= 100_000 && s < 40 {
		s = 40
	}
	return clamp(s)
}

// marketOnlyLiquidityScore grades on pool depth alone when no security
// source answered.
func marketOnlyLiquidityScore(m domain.MarketReport) int {
	switch {
	case m.LiquidityUSD >= 500_000:
		return 70
	case m.LiquidityUSD >= 100_000:
		return 60
	case m.LiquidityUSD >= 10_000:
		return 40
	case m.LiquidityUSD > 0:
		return 25
	default:
		return neutral
	}
}

func ownershipScore(in *Input) int {
	if !in.HasSecurity {
		return neutral
	}
	sec := in.Security

	s := 30
	if sec.OwnershipRenounced {
		s = 90
	}
	if sec.CanMint {
		s -= 25
	}
	if sec.CanPause {
		s -= 15
	}
	if sec.CanBlacklist {
		s -= 20
	}
	return clamp(s)
}

// honeypotScore is a binary override: a confirmed honeypot zeroes the
// factor no matter what else the report says.
func honeypotScore(in *Input) int {
	sec := in.Security
	if sec.IsHoneypot {
		return 0
	}
	if !in.HasSecurity || !sec.HoneypotChecked {
		return neutral
	}
	return 100
}

func holdersScore(in *Input) int {
	sec := in.Security
	if !in.HasSecurity || (sec.HolderCount == 0 && sec.Top10HoldersPct == 0 && sec.TopHolderPct == 0) {
		return neutral
	}

	s := 100
	switch {
	case sec.Top10HoldersPct > 80:
		s -= 50
	case sec.Top10HoldersPct > 50:
		s -= 30
	case sec.Top10HoldersPct > 30:
		s -= 15
	}
	switch {
	case sec.TopHolderPct > 30:
		s -= 30
	case sec.TopHolderPct > 15:
		s -= 15
	}
	switch {
	case sec.HolderCount > 0 && sec.HolderCount < 50:
		s -= 30
	case sec.HolderCount > 0 && sec.HolderCount < 500:
		s -= 10
	case sec.HolderCount >= 5000:
		s += 10
	}
	return clamp(s)
}

func taxScore(in *Input) int {
	sec := in.Security
	if !in.HasSecurity {
		return neutral
	}

	total := sec.BuyTax + sec.SellTax
	var s int
	switch {
	case total == 0:
		s = 100
	case total <= 5:
		s = 85
	case total <= 10:
		s = 65
	case total <= 20:
		s = 35
	default:
		s = 10
	}
	if sec.TaxModifiable {
		s -= 25
	}
	return clamp(s)
}

func verificationScore(in *Input) int {
	if !in.HasSecurity {
		return neutral
	}
	sec := in.Security

	s := 20
	if sec.IsVerified {
		s += 50
	}
	if sec.IsAudited {
		s += 30
	}
	if sec.IsProxy {
		s -= 20
	}
	return clamp(s)
}

// activityScore grades 24h volume and transaction count; dead pools and
// wash-trade shaped anomalies both lose points.
func activityScore(in *Input) int {
	if !in.HasMarket {
		return neutral
	}
	m := in.Market

	s := neutral
	switch {
	case m.Volume24h >= 100_000:
		s = 90
	case m.Volume24h >= 10_000:
		s = 75
	case m.Volume24h >= 1_000:
		s = 55
	case m.Volume24h > 0:
		s = 35
	default:
		s = 25
	}
	if m.TxCount24h >= 100 {
		s += 10
	}
	// Huge volume over a thin pool is a wash-trading signature.
	if m.LiquidityUSD > 0 && m.Volume24h > m.LiquidityUSD*50 {
		s -= 30
	}
	return clamp(s)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
