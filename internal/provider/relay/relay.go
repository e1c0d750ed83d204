// Package relay retries the primary metals.dev request through public CORS
// relays, for deployments where the upstream cannot be reached directly.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"metalprice/internal/provider"
	"metalprice/internal/provider/metalsdev"
)

// Placeholder marks where a template receives the escaped target URL.
const Placeholder = "{url}"

// DefaultTemplates are tried in order; the first usable answer wins.
var DefaultTemplates = []string{
	"https://api.allorigins.win/raw?url=" + Placeholder,
	"https://corsproxy.io/?" + Placeholder,
	"https://api.codetabs.com/v1/proxy?quest=" + Placeholder,
}

type Config struct {
	Name           string
	Templates      []string
	Timeout        time.Duration // per relay attempt, default 12s
	MinGoldPerGram float64
	SilverRatio    float64
}

// Adapter fetches the metals.dev latest payload via relays.
type Adapter struct {
	cfg    Config
	target string
	client *resty.Client
	log    logrus.FieldLogger
}

// New builds a relay adapter for target, the fully qualified upstream URL.
func New(cfg Config, target string, client *resty.Client, log logrus.FieldLogger) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "metals.dev-relay"
	}
	if len(cfg.Templates) == 0 {
		cfg.Templates = DefaultTemplates
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.MinGoldPerGram <= 0 {
		cfg.MinGoldPerGram = 1000
	}
	if cfg.SilverRatio <= 0 {
		cfg.SilverRatio = provider.DefaultSilverRatio
	}
	if client == nil {
		client = resty.New()
	}
	return &Adapter{cfg: cfg, target: target, client: client, log: log.WithField("source", cfg.Name)}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Fetch(ctx context.Context) (provider.Quote, bool) {
	for _, tpl := range a.cfg.Templates {
		relayURL := Wrap(tpl, a.target)
		q, err := a.try(ctx, relayURL)
		if err != nil {
			a.log.WithError(err).WithField("relay", relayHost(tpl)).Debug("relay attempt failed")
			continue
		}
		a.log.WithFields(logrus.Fields{"relay": relayHost(tpl), "gold": q.GoldPerGram, "silver": q.SilverPerGram}).Info("relay quote")
		return q, true
	}
	a.log.WithField("relays", len(a.cfg.Templates)).Warn("all relays failed")
	return provider.Quote{}, false
}

func (a *Adapter) try(ctx context.Context, relayURL string) (provider.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err := a.client.R().SetContext(ctx).Get(relayURL)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("performing request: %w", err)
	}
	if !resp.IsSuccess() {
		return provider.Quote{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode())
	}
	res, err := metalsdev.DecodeLatest(bytes.NewReader(Unwrap(resp.Body())))
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

// Wrap substitutes the query-escaped target into tpl.
func Wrap(tpl, target string) string {
	return strings.Replace(tpl, Placeholder, url.QueryEscape(target), 1)
}

// Unwrap returns the inner document of an envelope of the form
// {"contents": "<json>"}; any other body is returned unchanged.
func Unwrap(body []byte) []byte {
	var env struct {
		Contents *string `json:"contents"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Contents != nil {
		return []byte(*env.Contents)
	}
	return body
}

// relayHost keeps credentials embedded in the target out of the logs.
func relayHost(tpl string) string {
	u, err := url.Parse(strings.Replace(tpl, Placeholder, "", 1))
	if err != nil {
		return "?"
	}
	return u.Host
}
