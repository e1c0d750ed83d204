// Package app assembles the price service from configuration. Every
// binary builds through here so the source order is defined once.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"metalprice/internal/cache"
	"metalprice/internal/config"
	"metalprice/internal/httpx"
	"metalprice/internal/prices"
	"metalprice/internal/provider"
	"metalprice/internal/provider/coingecko"
	"metalprice/internal/provider/metalsdev"
	"metalprice/internal/provider/ratelimit"
	"metalprice/internal/provider/relay"
)

type App struct {
	Config  config.Config
	Log     logrus.FieldLogger
	Sources []provider.Source
	Chain   *prices.Chain
	Store   cache.Store
	Service *prices.Service

	closeStore func()
}

// New opens the configured store and builds the source chain. Call Close
// when done.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*App, error) {
	store, closeStore, err := cache.Open(ctx, cache.Options{
		Backend:   cfg.Cache.Backend,
		Key:       cfg.Cache.Key,
		Path:      cfg.Cache.Path,
		RedisURL:  cfg.Cache.RedisURL,
		Retention: seconds(cfg.Cache.RetentionSec),
		DSN:       cfg.Cache.PostgresDSN,
		Table:     cfg.Cache.Table,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	sources := Sources(cfg, log)
	if len(sources) == 0 {
		log.Warn("no live sources configured; only cached and default prices will be served")
	}
	chain := prices.NewChain(cfg.Currency, log, sources...)
	svc := prices.NewService(chain, store, prices.Options{
		FreshFor: cfg.FreshFor(),
		Currency: cfg.Currency,
		Log:      log,
	})
	log.WithFields(logrus.Fields{
		"sources":   len(sources),
		"cache":     cfg.Cache.Backend,
		"fresh_for": cfg.FreshFor(),
		"currency":  cfg.Currency,
	}).Info("price service ready")
	return &App{
		Config:     cfg,
		Log:        log,
		Sources:    sources,
		Chain:      chain,
		Store:      store,
		Service:    svc,
		closeStore: closeStore,
	}, nil
}

func (a *App) Close() {
	if a.closeStore != nil {
		a.closeStore()
	}
}

// Sources builds the enabled sources in priority order: direct, relayed,
// then the secondary market. Sources missing a required credential are
// skipped with a warning.
func Sources(cfg config.Config, log logrus.FieldLogger) []provider.Source {
	var out []provider.Source

	var direct *metalsdev.Client
	if cfg.MetalsDev.APIKey != "" {
		hc := httpx.New(seconds(cfg.MetalsDev.TimeoutSec))
		opts := []metalsdev.ClientOption{
			metalsdev.WithHTTPClient(hc.HTTP),
			metalsdev.WithHeader(http.Header{"User-Agent": []string{httpx.UserAgent}}),
		}
		if cfg.MetalsDev.BaseURL != "" {
			opts = append(opts, metalsdev.WithBaseURL(cfg.MetalsDev.BaseURL))
		}
		c, err := metalsdev.NewClient(cfg.MetalsDev.APIKey, opts...)
		if err != nil {
			log.WithError(err).Warn("metals.dev client")
		} else {
			direct = c
		}
	} else if cfg.MetalsDev.Enabled || cfg.Relay.Enabled {
		log.Warn("METALSDEV_API_KEY not set; skipping metals.dev and its relays")
	}

	if direct != nil && cfg.MetalsDev.Enabled {
		out = append(out, metalsdev.New(metalsdev.Config{
			Currency:       cfg.Currency,
			Unit:           cfg.MetalsDev.Unit,
			Timeout:        seconds(cfg.MetalsDev.TimeoutSec),
			MinGoldPerGram: cfg.MetalsDev.MinGoldPerGram,
			SilverRatio:    cfg.SilverRatio,
		}, direct, log))
	}

	if direct != nil && cfg.Relay.Enabled {
		client := resty.New().
			SetHeader("User-Agent", httpx.UserAgent).
			SetRetryCount(0)
		var s provider.Source = relay.New(relay.Config{
			Templates:      cfg.Relay.Templates,
			Timeout:        seconds(cfg.Relay.TimeoutSec),
			MinGoldPerGram: cfg.MetalsDev.MinGoldPerGram,
			SilverRatio:    cfg.SilverRatio,
		}, direct.LatestURL(cfg.Currency, cfg.MetalsDev.Unit), client, log)
		s = ratelimit.Wrap(s, cfg.Relay.MaxRequestsPerMinute, cfg.Relay.Burst, seconds(cfg.Relay.MinRequestIntervalSec))
		out = append(out, s)
	}

	if cfg.CoinGecko.Enabled {
		var s provider.Source = coingecko.New(coingecko.Config{
			URL:             cfg.CoinGecko.URL,
			AssetID:         cfg.CoinGecko.AssetID,
			Currency:        cfg.Currency,
			Timeout:         seconds(cfg.CoinGecko.TimeoutSec),
			MinGoldPerOunce: cfg.CoinGecko.MinGoldPerOunce,
			SilverRatio:     cfg.SilverRatio,
		}, httpx.New(seconds(cfg.CoinGecko.TimeoutSec)), log)
		s = ratelimit.Wrap(s, cfg.CoinGecko.MaxRequestsPerMinute, cfg.CoinGecko.Burst, seconds(cfg.CoinGecko.MinRequestIntervalSec))
		out = append(out, s)
	}
	return out
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
