package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"metalprice/internal/httpx"
	"metalprice/internal/provider"
	"metalprice/internal/snapshot"
)

// Config controls the CoinGecko fallback source. The tokenized-gold asset
// tracks one troy ounce of gold, so its price stands in for spot gold.
type Config struct {
	Name            string
	URL             string        // simple/price endpoint
	AssetID         string        // e.g., pax-gold
	Currency        string        // e.g., LKR
	Timeout         time.Duration // default 10s
	MinGoldPerOunce float64       // sanity floor on the per-ounce quote
	SilverRatio     float64
}

// Provider derives a gold quote from a gold-backed token and estimates
// silver from the configured ratio.
type Provider struct {
	cfg    Config
	client *httpx.Client
	log    logrus.FieldLogger
}

func New(cfg Config, hc *httpx.Client, log logrus.FieldLogger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "coingecko"
	}
	if cfg.URL == "" {
		cfg.URL = "https://api.coingecko.com/api/v3/simple/price"
	}
	if cfg.AssetID == "" {
		cfg.AssetID = "pax-gold"
	}
	if cfg.Currency == "" {
		cfg.Currency = "LKR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinGoldPerOunce <= 0 {
		cfg.MinGoldPerOunce = 100000
	}
	if cfg.SilverRatio <= 0 {
		cfg.SilverRatio = provider.DefaultSilverRatio
	}
	return &Provider{cfg: cfg, client: hc, log: log.WithField("source", cfg.Name)}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Fetch(ctx context.Context) (provider.Quote, bool) {
	q, err := p.fetch(ctx)
	if err != nil {
		p.log.WithError(err).Warn("fallback fetch failed")
		return provider.Quote{}, false
	}
	p.log.WithFields(logrus.Fields{"gold": q.GoldPerGram, "silver": q.SilverPerGram}).Info("fallback quote")
	return q, true
}

// simplePrice is keyed by asset id, then by lower-case currency code.
type simplePrice map[string]map[string]float64

func (p *Provider) fetch(ctx context.Context) (provider.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	vs := strings.ToLower(p.cfg.Currency)
	q := url.Values{}
	q.Set("ids", p.cfg.AssetID)
	q.Set("vs_currencies", vs)
	q.Set("include_last_updated_at", "true")

	var body simplePrice
	if err := p.client.GetJSON(ctx, p.cfg.URL+"?"+q.Encode(), &body); err != nil {
		return provider.Quote{}, err
	}
	asset, ok := body[p.cfg.AssetID]
	if !ok {
		return provider.Quote{}, fmt.Errorf("asset %q missing from response", p.cfg.AssetID)
	}
	perOunce, ok := asset[vs]
	if !ok {
		return provider.Quote{}, fmt.Errorf("currency %q missing for %s", vs, p.cfg.AssetID)
	}
	if err := provider.Plausible(perOunce, p.cfg.MinGoldPerOunce); err != nil {
		return provider.Quote{}, fmt.Errorf("gold per ounce: %w", err)
	}
	gold := perOunce / snapshot.TroyOunceGrams
	return provider.Quote{
		GoldPerGram:   gold,
		SilverPerGram: gold / p.cfg.SilverRatio,
		Source:        p.cfg.Name,
	}, nil
}
