package domain

import "time"

// RiskLevel buckets a composite score into an actionable verdict.
type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskWarning RiskLevel = "warning"
	RiskDanger  RiskLevel = "danger"
)

// FlagSeverity orders advisory flags by urgency.
type FlagSeverity string

const (
	FlagCritical FlagSeverity = "critical"
	FlagWarning  FlagSeverity = "warning"
	FlagInfo     FlagSeverity = "info"
)

// Flag is an advisory annotation attached to a scored record. Flags
// never feed back into the numeric score.
type Flag struct {
	Severity FlagSeverity `json:"type"`
	Message  string       `json:"message"`
}

// MarketReport holds the fields contributed by the market-data source.
// Any field may be absent upstream and remain at its zero value.
type MarketReport struct {
	TokenName      string  `json:"tokenName,omitempty"`
	TokenSymbol    string  `json:"tokenSymbol,omitempty"`
	PriceUSD       float64 `json:"price"`
	LiquidityUSD   float64 `json:"liquidity"`
	Volume24h      float64 `json:"volume24h"`
	TxCount24h     int     `json:"txCount24h"`
	PriceChange24h float64 `json:"priceChange24h"`
	MarketCapUSD   float64 `json:"marketCap"`
	PairCreatedAt  int64   `json:"pairCreatedAt,omitempty"`
}

// PairAge returns how long before now the deepest pair was created,
// zero when the source did not report a creation time.
func (m MarketReport) PairAge(now time.Time) time.Duration {
	if m.PairCreatedAt == 0 {
		return 0
	}
	age := now.Sub(time.UnixMilli(m.PairCreatedAt))
	if age < 0 {
		return 0
	}
	return age
}

// SecurityReport holds the fields contributed by the security-audit
// sources after the priority merge. Pointer-free: zero values double as
// "unknown", which is what the merge's zero-value fallback keys on.
type SecurityReport struct {
	IsHoneypot         bool    `json:"isHoneypot"`
	HoneypotChecked    bool    `json:"honeypotChecked"`
	OwnershipRenounced bool    `json:"ownershipRenounced"`
	CanMint            bool    `json:"canMint"`
	CanPause           bool    `json:"canPause"`
	CanBlacklist       bool    `json:"canBlacklist"`
	LiquidityLocked    bool    `json:"liquidityLocked"`
	LPBurned           bool    `json:"lpBurned"`
	LockDurationDays   int     `json:"lockDurationDays"`
	LockedPercent      float64 `json:"lockedPercent"`
	BuyTax             float64 `json:"buyTax"`
	SellTax            float64 `json:"sellTax"`
	TaxModifiable      bool    `json:"taxModifiable"`
	IsVerified         bool    `json:"isVerified"`
	IsAudited          bool    `json:"isAudited"`
	IsProxy            bool    `json:"isProxy"`
	HolderCount        int     `json:"holderCount"`
	Top10HoldersPct    float64 `json:"top10HoldersPercent"`
	TopHolderPct       float64 `json:"topHolderPercent"`
}

// TokenRecord is the unit of analysis: one scored snapshot of a token.
// Records are immutable once produced; a rescan creates a new record.
type TokenRecord struct {
	Address     Address        `json:"address"`
	TokenName   string         `json:"tokenName,omitempty"`
	TokenSymbol string         `json:"tokenSymbol,omitempty"`
	Score       int            `json:"score"`
	RiskLevel   RiskLevel      `json:"riskLevel"`
	Breakdown   map[string]int `json:"breakdown"`
	Flags       []Flag         `json:"flags"`
	Market      MarketReport   `json:"market"`
	Security    SecurityReport `json:"security"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Baseline is the reference snapshot captured when a token is added to
// the watchlist. Change detection always diffs against this, not against
// the previous poll.
type Baseline struct {
	Score        int       `json:"score"`
	LiquidityUSD float64   `json:"liquidity"`
	HolderCount  int       `json:"holderCount"`
	TopHolderPct float64   `json:"topHolderPercent"`
	IsHoneypot   bool      `json:"isHoneypot"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// Change records one baseline-vs-current difference found by a poll.
type Change struct {
	Field    string       `json:"field"`
	Severity FlagSeverity `json:"severity"`
	Old      float64      `json:"old"`
	New      float64      `json:"new"`
	Message  string       `json:"message"`
}

// WatchlistItem pins a token for standing monitoring. Baseline is set
// once at add time (or on the first successful poll when adding without
// a scan) and is never silently refreshed.
type WatchlistItem struct {
	Address      Address      `json:"address"`
	TokenName    string       `json:"tokenName,omitempty"`
	TokenSymbol  string       `json:"tokenSymbol,omitempty"`
	AddedAt      time.Time    `json:"addedAt"`
	Baseline     *Baseline    `json:"baseline,omitempty"`
	LastScore    int          `json:"lastScore"`
	LastMarket   MarketReport `json:"lastMarket"`
	LastChanges  []Change     `json:"lastChanges,omitempty"`
	LastUpdated  time.Time    `json:"lastUpdated"`
	LastRiskTier RiskLevel    `json:"lastRiskLevel,omitempty"`
}
