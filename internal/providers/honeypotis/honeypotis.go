// Package honeypotis implements the secondary EVM security provider
// over the honeypot.is simulation endpoint. It backfills only the
// fields the primary source left unset.
package honeypotis

import (
	"context"
	"fmt"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/net/httpx"
	"github.com/rugscan/rugscan/internal/net/ratelimit"
)

const providerName = "honeypotis"

var chainIDs = map[domain.Chain]string{
	domain.ChainEthereum: "1",
	domain.ChainBSC:      "56",
	domain.ChainBase:     "8453",
}

// Config tunes the provider.
type Config struct {
	BaseURL string
}

// Provider is the honeypot.is client.
type Provider struct {
	config Config
	client *httpx.Client
	limits *ratelimit.Manager
}

// New creates a honeypot.is provider.
func New(config Config, client *httpx.Client, limits *ratelimit.Manager) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.honeypot.is"
	}
	return &Provider{config: config, client: client, limits: limits}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Supports(family domain.Family) bool { return family == domain.FamilyEVM }

type response struct {
	Token struct {
		Name         string `json:"name"`
		Symbol       string `json:"symbol"`
		TotalHolders int    `json:"totalHolders"`
	} `json:"token"`
	HoneypotResult *struct {
		IsHoneypot bool `json:"isHoneypot"`
	} `json:"honeypotResult"`
	SimulationResult struct {
		BuyTax  float64 `json:"buyTax"`
		SellTax float64 `json:"sellTax"`
	} `json:"simulationResult"`
	ContractCode struct {
		OpenSource bool `json:"openSource"`
		IsProxy    bool `json:"isProxy"`
	} `json:"contractCode"`
}

// FetchSecurity runs the buy/sell simulation for an EVM address.
func (p *Provider) FetchSecurity(ctx context.Context, addr domain.Address) (*domain.SecurityReport, error) {
	chainID, ok := chainIDs[addr.Chain]
	if !ok {
		return nil, fmt.Errorf("honeypotis: unsupported chain %s", addr.Chain)
	}
	if err := p.limits.Wait(ctx, providerName); err != nil {
		return nil, fmt.Errorf("honeypotis rate limit: %w", err)
	}

	url := fmt.Sprintf("%s/v2/IsHoneypot?address=%s&chainID=%s",
		p.config.BaseURL, addr.Value, chainID)
	var resp response
	if err := p.client.GetJSON(ctx, providerName, url, &resp); err != nil {
		return nil, err
	}

	report := &domain.SecurityReport{
		BuyTax:      resp.SimulationResult.BuyTax,
		SellTax:     resp.SimulationResult.SellTax,
		IsVerified:  resp.ContractCode.OpenSource,
		IsProxy:     resp.ContractCode.IsProxy,
		HolderCount: resp.Token.TotalHolders,
	}
	if resp.HoneypotResult != nil {
		report.IsHoneypot = resp.HoneypotResult.IsHoneypot
		report.HoneypotChecked = true
	}
	return report, nil
}
