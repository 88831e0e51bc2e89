// Package rugcheck implements the Solana security provider over the
// rugcheck.xyz token report endpoint.
package rugcheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/net/httpx"
	"github.com/rugscan/rugscan/internal/net/ratelimit"
)

const providerName = "rugcheck"

// Config tunes the provider.
type Config struct {
	BaseURL string
}

// Provider is the rugcheck.xyz client.
type Provider struct {
	config Config
	client *httpx.Client
	limits *ratelimit.Manager
}

// New creates a rugcheck provider.
func New(config Config, client *httpx.Client, limits *ratelimit.Manager) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.rugcheck.xyz"
	}
	return &Provider{config: config, client: client, limits: limits}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Supports(family domain.Family) bool { return family == domain.FamilySolana }

type response struct {
	TokenMeta struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"tokenMeta"`
	Token struct {
		MintAuthority   string `json:"mintAuthority"`
		FreezeAuthority string `json:"freezeAuthority"`
	} `json:"token"`
	Risks []struct {
		Name  string `json:"name"`
		Level string `json:"level"`
	} `json:"risks"`
	TotalHolders int `json:"totalHolders"`
	TopHolders   []struct {
		Pct float64 `json:"pct"`
	} `json:"topHolders"`
	Markets []struct {
		LP struct {
			LPLockedPct float64 `json:"lpLockedPct"`
		} `json:"lp"`
	} `json:"markets"`
	Rugged bool `json:"rugged"`
}

// FetchSecurity fetches the rug report for a mint. Solana has no owner
// contract; mint and freeze authorities play the ownership role.
func (p *Provider) FetchSecurity(ctx context.Context, addr domain.Address) (*domain.SecurityReport, error) {
	if addr.Chain.Family() != domain.FamilySolana {
		return nil, fmt.Errorf("rugcheck: unsupported chain %s", addr.Chain)
	}
	if err := p.limits.Wait(ctx, providerName); err != nil {
		return nil, fmt.Errorf("rugcheck rate limit: %w", err)
	}

	url := fmt.Sprintf("%s/v1/tokens/%s/report", p.config.BaseURL, addr.Value)
	var resp response
	if err := p.client.GetJSON(ctx, providerName, url, &resp); err != nil {
		return nil, err
	}

	report := &domain.SecurityReport{
		HoneypotChecked:    true,
		IsHoneypot:         resp.Rugged,
		OwnershipRenounced: resp.Token.MintAuthority == "" && resp.Token.FreezeAuthority == "",
		CanMint:            resp.Token.MintAuthority != "",
		CanPause:           resp.Token.FreezeAuthority != "",
		HolderCount:        resp.TotalHolders,
	}

	for _, risk := range resp.Risks {
		name := strings.ToLower(risk.Name)
		switch {
		case strings.Contains(name, "honeypot"):
			report.IsHoneypot = true
		case strings.Contains(name, "freeze"):
			report.CanPause = true
		case strings.Contains(name, "mint"):
			report.CanMint = true
		}
	}

	var top10 float64
	for i, h := range resp.TopHolders {
		if i == 0 {
			report.TopHolderPct = h.Pct
		}
		if i < 10 {
			top10 += h.Pct
		}
	}
	report.Top10HoldersPct = top10

	for _, m := range resp.Markets {
		if m.LP.LPLockedPct > report.LockedPercent {
			report.LockedPercent = m.LP.LPLockedPct
		}
	}
	if report.LockedPercent >= 90 {
		report.LPBurned = true
	} else if report.LockedPercent >= 50 {
		report.LiquidityLocked = true
	}

	return report, nil
}
