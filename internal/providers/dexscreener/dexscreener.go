// Package dexscreener implements the market-data provider over the DEX
// Screener token endpoint. It serves every chain family.
package dexscreener

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/net/httpx"
	"github.com/rugscan/rugscan/internal/net/ratelimit"
)

const providerName = "dexscreener"

// Config tunes the provider. BaseURL defaults to the public API.
type Config struct {
	BaseURL string
}

// Provider is the DEX Screener market-data client.
type Provider struct {
	config Config
	client *httpx.Client
	limits *ratelimit.Manager
}

// New creates a DEX Screener provider sharing the given HTTP client and
// rate-limit manager.
func New(config Config, client *httpx.Client, limits *ratelimit.Manager) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.dexscreener.com"
	}
	return &Provider{config: config, client: client, limits: limits}
}

func (p *Provider) Name() string { return providerName }

// tokenResponse mirrors the subset of the pairs payload the pipeline
// consumes. Absent fields stay at zero.
type tokenResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID   string `json:"chainId"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Txns struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
}

// FetchMarket returns market metrics for the deepest pair listing the
// token. A token with no pairs is a provider-level miss.
func (p *Provider) FetchMarket(ctx context.Context, addr domain.Address) (*domain.MarketReport, error) {
	if err := p.limits.Wait(ctx, providerName); err != nil {
		return nil, fmt.Errorf("dexscreener rate limit: %w", err)
	}

	url := fmt.Sprintf("%s/latest/dex/tokens/%s", p.config.BaseURL, addr.Value)
	var resp tokenResponse
	if err := p.client.GetJSON(ctx, providerName, url, &resp); err != nil {
		return nil, err
	}
	if len(resp.Pairs) == 0 {
		return nil, fmt.Errorf("dexscreener: no pairs for %s", addr.Key())
	}

	best := resp.Pairs[0]
	for _, pr := range resp.Pairs[1:] {
		if pr.Liquidity.USD > best.Liquidity.USD {
			best = pr
		}
	}

	price, _ := strconv.ParseFloat(best.PriceUSD, 64)
	return &domain.MarketReport{
		TokenName:      best.BaseToken.Name,
		TokenSymbol:    best.BaseToken.Symbol,
		PriceUSD:       price,
		LiquidityUSD:   best.Liquidity.USD,
		Volume24h:      best.Volume.H24,
		TxCount24h:     best.Txns.H24.Buys + best.Txns.H24.Sells,
		PriceChange24h: best.PriceChange.H24,
		MarketCapUSD:   best.MarketCap,
		PairCreatedAt:  best.PairCreatedAt,
	}, nil
}
