// Package goplus implements the primary EVM security provider over the
// GoPlus token_security endpoint. GoPlus reports most flags as "0"/"1"
// strings and percentages as decimal strings; absent fields decode to
// empty strings and map to the zero value.
package goplus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/net/httpx"
	"github.com/rugscan/rugscan/internal/net/ratelimit"
)

const providerName = "goplus"

// chainIDs maps supported EVM chains to GoPlus numeric chain ids.
var chainIDs = map[domain.Chain]string{
	domain.ChainEthereum: "1",
	domain.ChainBSC:      "56",
	domain.ChainPolygon:  "137",
	domain.ChainBase:     "8453",
	domain.ChainArbitrum: "42161",
}

// Config tunes the provider.
type Config struct {
	BaseURL string
}

// Provider is the GoPlus security client.
type Provider struct {
	config Config
	client *httpx.Client
	limits *ratelimit.Manager
}

// New creates a GoPlus provider.
func New(config Config, client *httpx.Client, limits *ratelimit.Manager) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.gopluslabs.io"
	}
	return &Provider{config: config, client: client, limits: limits}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Supports(family domain.Family) bool { return family == domain.FamilyEVM }

type response struct {
	Code   int                  `json:"code"`
	Result map[string]tokenInfo `json:"result"`
}

type tokenInfo struct {
	TokenName          string     `json:"token_name"`
	TokenSymbol        string     `json:"token_symbol"`
	IsHoneypot         string     `json:"is_honeypot"`
	IsOpenSource       string     `json:"is_open_source"`
	IsProxy            string     `json:"is_proxy"`
	IsMintable         string     `json:"is_mintable"`
	TransferPausable   string     `json:"transfer_pausable"`
	IsBlacklisted      string     `json:"is_blacklisted"`
	OwnerAddress       string     `json:"owner_address"`
	BuyTax             string     `json:"buy_tax"`
	SellTax            string     `json:"sell_tax"`
	SlippageModifiable string     `json:"slippage_modifiable"`
	HolderCount        string     `json:"holder_count"`
	LPHolders          []lpHolder `json:"lp_holders"`
	Holders            []holder   `json:"holders"`
}

type lpHolder struct {
	Address  string `json:"address"`
	IsLocked int    `json:"is_locked"`
	Percent  string `json:"percent"`
	Tag      string `json:"tag"`
}

type holder struct {
	Address string `json:"address"`
	Percent string `json:"percent"`
}

// FetchSecurity queries token security data for an EVM address.
func (p *Provider) FetchSecurity(ctx context.Context, addr domain.Address) (*domain.SecurityReport, error) {
	chainID, ok := chainIDs[addr.Chain]
	if !ok {
		return nil, fmt.Errorf("goplus: unsupported chain %s", addr.Chain)
	}
	if err := p.limits.Wait(ctx, providerName); err != nil {
		return nil, fmt.Errorf("goplus rate limit: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/token_security/%s?contract_addresses=%s",
		p.config.BaseURL, chainID, addr.Value)
	var resp response
	if err := p.client.GetJSON(ctx, providerName, url, &resp); err != nil {
		return nil, err
	}

	info, ok := resp.Result[addr.Value]
	if !ok {
		// GoPlus keys results by the checksummed form on some chains.
		for key, v := range resp.Result {
			if strings.EqualFold(key, addr.Value) {
				info, ok = v, true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("goplus: no result for %s", addr.Key())
	}

	// GoPlus reports taxes as fractions; the pipeline uses percentage
	// points throughout.
	report := &domain.SecurityReport{
		IsHoneypot:         flag(info.IsHoneypot),
		HoneypotChecked:    info.IsHoneypot != "",
		OwnershipRenounced: renounced(info.OwnerAddress),
		CanMint:            flag(info.IsMintable),
		CanPause:           flag(info.TransferPausable),
		CanBlacklist:       flag(info.IsBlacklisted),
		BuyTax:             percent(info.BuyTax) * 100,
		SellTax:            percent(info.SellTax) * 100,
		TaxModifiable:      flag(info.SlippageModifiable),
		IsVerified:         flag(info.IsOpenSource),
		IsProxy:            flag(info.IsProxy),
		HolderCount:        count(info.HolderCount),
	}

	for _, lp := range info.LPHolders {
		pct := percent(lp.Percent)
		if lp.IsLocked == 1 {
			if isBurnTag(lp.Tag, lp.Address) {
				report.LPBurned = true
			} else {
				report.LiquidityLocked = true
			}
			report.LockedPercent += pct * 100
		}
	}

	var top10 float64
	for i, h := range info.Holders {
		pct := percent(h.Percent) * 100
		if i == 0 {
			report.TopHolderPct = pct
		}
		if i < 10 {
			top10 += pct
		}
	}
	report.Top10HoldersPct = top10

	return report, nil
}

func flag(s string) bool { return s == "1" }

// renounced treats the zero and dead addresses as a renounced owner.
func renounced(owner string) bool {
	switch strings.ToLower(owner) {
	case "0x0000000000000000000000000000000000000000",
		"0x000000000000000000000000000000000000dead":
		return true
	}
	return false
}

func isBurnTag(tag, address string) bool {
	if strings.EqualFold(tag, "burn") || strings.EqualFold(tag, "null") {
		return true
	}
	return renounced(address)
}

func percent(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func count(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
