// Command fetch prints one price snapshot using the configured sources and
// cache, the same way the server would answer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"metalprice/internal/app"
	"metalprice/internal/board"
	"metalprice/internal/config"
	"metalprice/internal/logx"
	"metalprice/internal/snapshot"
)

// Exit codes. Scripts can tell indicative prices apart from real ones.
const (
	exitOK         = 0
	exitFailure    = 1
	exitIndicative = 2
)

type options struct {
	force      bool
	clearFirst bool
	asBoard    bool
}

type priceService interface {
	Snapshot(ctx context.Context, force bool) snapshot.Snapshot
	Refresh(ctx context.Context) snapshot.Snapshot
}

// opener builds the service and returns the function that releases it.
type opener func(ctx context.Context) (priceService, func(), error)

func main() {
	var (
		configPath string
		o          options
		logLevel   string
	)
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json (optional)")
	flag.BoolVar(&o.force, "force", getenvBool("FORCE_REFRESH", false), "bypass the freshness window")
	flag.BoolVar(&o.clearFirst, "clear", false, "drop the stored snapshot before fetching")
	flag.BoolVar(&o.asBoard, "board", false, "print the price board instead of the raw snapshot")
	flag.StringVar(&logLevel, "log-level", getenv("LOG_LEVEL", "warn"), "log level")
	flag.Parse()

	cfg, err := config.Load(configPath)
	log := logx.New(logLevel, cfg.Log.Format)
	if err != nil {
		log.WithError(err).Error("config")
		os.Exit(exitFailure)
	}

	os.Exit(run(context.Background(), o, os.Stdout, log, openApp(cfg, log)))
}

func openApp(cfg config.Config, log logrus.FieldLogger) opener {
	return func(ctx context.Context) (priceService, func(), error) {
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return a.Service, a.Close, nil
	}
}

// run does the work of main and returns the process exit code. Everything
// it opens is released before it returns.
func run(ctx context.Context, o options, w io.Writer, log logrus.FieldLogger, open opener) int {
	svc, closeFn, err := open(ctx)
	if err != nil {
		log.WithError(err).Error("startup")
		return exitFailure
	}
	defer closeFn()

	var snap snapshot.Snapshot
	if o.clearFirst {
		snap = svc.Refresh(ctx)
	} else {
		snap = svc.Snapshot(ctx, o.force)
	}

	var out any = snap
	if o.asBoard {
		out = board.Build(snap, snapshot.DefaultVolatility, nil)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.WithError(err).Error("encode")
		return exitFailure
	}
	fmt.Fprintln(w, string(b))

	if snap.Provenance == snapshot.ProvenanceDefault {
		return exitIndicative
	}
	return exitOK
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	}
	return def
}
