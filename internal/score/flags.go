package score

import (
	"fmt"

	"github.com/rugscan/rugscan/internal/domain"
)

// Flags derives advisory annotations from a merged report. Like Score it
// is pure and total; it shares no state with the numeric pass and its
// output never affects the composite score.
func Flags(in *Input) []domain.Flag {
	if in == nil {
		in = &Input{}
	}

	var flags []domain.Flag
	critical := func(msg string) { flags = append(flags, domain.Flag{Severity: domain.FlagCritical, Message: msg}) }
	warning := func(msg string) { flags = append(flags, domain.Flag{Severity: domain.FlagWarning, Message: msg}) }
	info := func(msg string) { flags = append(flags, domain.Flag{Severity: domain.FlagInfo, Message: msg}) }

	sec := in.Security
	m := in.Market

	if sec.IsHoneypot {
		critical("Honeypot detected: selling is blocked or heavily restricted")
	}
	if in.HasSecurity {
		if !sec.OwnershipRenounced {
			warning("Ownership not renounced: the deployer retains contract control")
		}
		if sec.CanMint {
			critical("Contract can mint new tokens and dilute holders")
		}
		if sec.CanPause {
			warning("Contract can pause trading")
		}
		if sec.CanBlacklist {
			warning("Contract can blacklist wallets")
		}
		if !sec.LiquidityLocked && !sec.LPBurned {
			warning("Liquidity is not locked or burned")
		}
		if sec.LPBurned {
			info("LP tokens burned")
		}
		if total := sec.BuyTax + sec.SellTax; total > 20 {
			critical(fmt.Sprintf("Extreme total tax of %.0f%%", total))
		} else if total > 10 {
			warning(fmt.Sprintf("High total tax of %.0f%%", total))
		}
		if sec.TaxModifiable {
			warning("Tax rates can be changed after launch")
		}
		if sec.TopHolderPct > 30 {
			critical(fmt.Sprintf("Single wallet holds %.1f%% of supply", sec.TopHolderPct))
		} else if sec.Top10HoldersPct > 50 {
			warning(fmt.Sprintf("Top 10 wallets hold %.1f%% of supply", sec.Top10HoldersPct))
		}
		if sec.HolderCount > 0 && sec.HolderCount < 50 {
			warning(fmt.Sprintf("Only %d holders", sec.HolderCount))
		}
		if sec.IsProxy {
			warning("Proxy contract: implementation can be swapped")
		}
		if sec.IsVerified {
			info("Source code verified")
		}
		if sec.IsAudited {
			info("Contract audited")
		}
	}
	if in.HasMarket {
		if m.LiquidityUSD > 0 && m.LiquidityUSD < 10_000 {
			warning(fmt.Sprintf("Thin liquidity of $%.0f", m.LiquidityUSD))
		}
		if m.LiquidityUSD > 0 && m.Volume24h > m.LiquidityUSD*50 {
			warning("24h volume far exceeds pool depth, possible wash trading")
		}
	}

	return flags
}
