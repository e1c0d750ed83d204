// Command probe calls every configured source once, concurrently and
// outside the fallback chain, and reports which of them answer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"metalprice/internal/app"
	"metalprice/internal/config"
	"metalprice/internal/logx"
	"metalprice/internal/provider"
	"metalprice/internal/snapshot"
)

type result struct {
	Priority      int                `json:"priority"`
	Source        string             `json:"source"`
	OK            bool               `json:"ok"`
	GoldPerGram   float64            `json:"goldPerGram,omitempty"`
	SilverPerGram float64            `json:"silverPerGram,omitempty"`
	Snapshot      *snapshot.Snapshot `json:"snapshot,omitempty"`
	Elapsed       string             `json:"elapsed"`
}

func main() {
	var (
		configPath string
		outPath    string
		logLevel   string
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.StringVar(&outPath, "out", "", "also write the report to this file")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Parse()

	cfg, err := config.Load(configPath)
	log := logx.New(logLevel, cfg.Log.Format)
	if err != nil {
		log.WithError(err).Fatal("config")
	}

	sources := app.Sources(cfg, log)
	if len(sources) == 0 {
		log.Fatal("no sources configured")
	}

	results := probe(context.Background(), cfg.Currency, sources)

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
	if outPath != "" {
		if err := os.WriteFile(outPath, append(b, '\n'), 0o644); err != nil {
			log.WithError(err).Fatal("write report")
		}
	}

	for _, r := range results {
		if r.OK {
			return
		}
	}
	os.Exit(1)
}

// probe runs every source in parallel. Results keep chain order.
func probe(ctx context.Context, currency string, sources []provider.Source) []result {
	results := make([]result, len(sources))
	var wg sync.WaitGroup
	for i, s := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			q, ok := s.Fetch(ctx)
			r := result{
				Priority: i + 1,
				Source:   s.Name(),
				OK:       ok,
				Elapsed:  time.Since(start).Round(time.Millisecond).String(),
			}
			if ok {
				r.GoldPerGram, r.SilverPerGram = q.GoldPerGram, q.SilverPerGram
				snap := snapshot.Build(q.GoldPerGram, q.SilverPerGram, currency, time.Now())
				snap.Source = s.Name()
				r.Snapshot = &snap
			}
			results[i] = r
		}()
	}
	wg.Wait()
	return results
}
