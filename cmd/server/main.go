package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metalprice/internal/app"
	"metalprice/internal/config"
	"metalprice/internal/logx"
	"metalprice/internal/scheduler"
	"metalprice/internal/snapshot"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logx.New("info", "").WithError(err).Fatal("config")
	}
	log := logx.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup")
	}
	defer a.Close()

	if cfg.Refresh.Enabled {
		sched := scheduler.New(a.Service, cfg.Refresh.Spec, log)
		if err := sched.Start(); err != nil {
			log.WithError(err).Fatal("scheduler")
		}
		defer sched.Stop()
		// Warm the store on startup.
		go sched.Tick()
	}

	h := &handler{svc: a.Service, volatility: snapshot.DefaultVolatility, log: log}
	// WriteTimeout must cover a full fallback cycle through every source.
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(h, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("server stopped")
}
