package metalsdev

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"metalprice/internal/provider"
)

// Config controls the direct metals.dev source.
type Config struct {
	Name           string        // display name, default: metals.dev
	Currency       string        // e.g., LKR
	Unit           string        // e.g., g
	Timeout        time.Duration // per call, default 10s
	MinGoldPerGram float64       // sanity floor for gold per gram
	SilverRatio    float64       // gold/silver ratio used when silver is missing
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "metals.dev"
	}
	if c.Currency == "" {
		c.Currency = "LKR"
	}
	if c.Unit == "" {
		c.Unit = "g"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MinGoldPerGram <= 0 {
		c.MinGoldPerGram = 1000
	}
	if c.SilverRatio <= 0 {
		c.SilverRatio = provider.DefaultSilverRatio
	}
}

// Adapter calls metals.dev directly.
type Adapter struct {
	cfg    Config
	client *Client
	log    logrus.FieldLogger
}

func New(cfg Config, client *Client, log logrus.FieldLogger) *Adapter {
	cfg.setDefaults()
	return &Adapter{cfg: cfg, client: client, log: log.WithField("source", cfg.Name)}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Fetch(ctx context.Context) (provider.Quote, bool) {
	q, err := a.fetch(ctx)
	if err != nil {
		a.log.WithError(err).Warn("direct fetch failed")
		return provider.Quote{}, false
	}
	a.log.WithFields(logrus.Fields{"gold": q.GoldPerGram, "silver": q.SilverPerGram}).Info("direct quote")
	return q, true
}

func (a *Adapter) fetch(ctx context.Context) (provider.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	res, err := a.client.Latest(ctx, a.cfg.Currency, a.cfg.Unit)
	if err != nil {
		return provider.Quote{}, err
	}
	q, err := res.Quote(a.cfg.MinGoldPerGram, a.cfg.SilverRatio)
	if err != nil {
		return provider.Quote{}, err
	}
	q.Source = a.cfg.Name
	return q, nil
}
