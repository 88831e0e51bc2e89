package scan

import "github.com/rugscan/rugscan/internal/domain"

// Security merging is first-writer-wins with zero-value fallback: the
// primary source's value stands unless it is the zero value, in which
// case the secondary source may fill it. The rules are an explicit
// ordered table so precedence never depends on struct-copy ordering.
type mergeRule struct {
	name  string
	apply func(dst *domain.SecurityReport, src *domain.SecurityReport)
}

var securityMergeRules = []mergeRule{
	{"honeypot", func(dst, src *domain.SecurityReport) {
		if !dst.HoneypotChecked && src.HoneypotChecked {
			dst.IsHoneypot = src.IsHoneypot
			dst.HoneypotChecked = true
		}
	}},
	{"ownership", func(dst, src *domain.SecurityReport) {
		if !dst.OwnershipRenounced && src.OwnershipRenounced {
			dst.OwnershipRenounced = true
		}
	}},
	{"capabilities", func(dst, src *domain.SecurityReport) {
		// Capability bits are dangerous when set; either source
		// asserting one keeps it.
		dst.CanMint = dst.CanMint || src.CanMint
		dst.CanPause = dst.CanPause || src.CanPause
		dst.CanBlacklist = dst.CanBlacklist || src.CanBlacklist
	}},
	{"liquidity-lock", func(dst, src *domain.SecurityReport) {
		if !dst.LiquidityLocked && !dst.LPBurned {
			dst.LiquidityLocked = src.LiquidityLocked
			dst.LPBurned = src.LPBurned
			dst.LockedPercent = src.LockedPercent
			dst.LockDurationDays = src.LockDurationDays
		}
	}},
	{"tax", func(dst, src *domain.SecurityReport) {
		if dst.BuyTax == 0 && dst.SellTax == 0 {
			dst.BuyTax = src.BuyTax
			dst.SellTax = src.SellTax
		}
		dst.TaxModifiable = dst.TaxModifiable || src.TaxModifiable
	}},
	{"verification", func(dst, src *domain.SecurityReport) {
		dst.IsVerified = dst.IsVerified || src.IsVerified
		dst.IsAudited = dst.IsAudited || src.IsAudited
		dst.IsProxy = dst.IsProxy || src.IsProxy
	}},
	{"holders", func(dst, src *domain.SecurityReport) {
		if dst.HolderCount == 0 {
			dst.HolderCount = src.HolderCount
		}
		if dst.Top10HoldersPct == 0 {
			dst.Top10HoldersPct = src.Top10HoldersPct
		}
		if dst.TopHolderPct == 0 {
			dst.TopHolderPct = src.TopHolderPct
		}
	}},
}

// mergeSecurity folds the secondary report into the primary under the
// rule table. Either argument may be nil.
func mergeSecurity(primary, secondary *domain.SecurityReport) *domain.SecurityReport {
	if primary == nil {
		return secondary
	}
	if secondary == nil {
		return primary
	}
	merged := *primary
	for _, rule := range securityMergeRules {
		rule.apply(&merged, secondary)
	}
	return &merged
}
