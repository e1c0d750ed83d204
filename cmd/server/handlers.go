package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"metalprice/internal/board"
	"metalprice/internal/snapshot"
)

// priceService is what the handlers need from prices.Service.
type priceService interface {
	Snapshot(ctx context.Context, force bool) snapshot.Snapshot
	Refresh(ctx context.Context) snapshot.Snapshot
	Clear(ctx context.Context) error
}

type handler struct {
	svc        priceService
	volatility float64
	log        logrus.FieldLogger
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// getPrices serves the snapshot; ?refresh=1 bypasses the freshness window.
func (h *handler) getPrices(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, h.svc.Snapshot(r.Context(), wantsRefresh(r)))
}

func (h *handler) getBoard(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot(r.Context(), wantsRefresh(r))
	w.Header().Set("X-Price-Provenance", string(snap.Provenance))
	writeJSON(w, http.StatusOK, board.Build(snap, h.volatility, nil))
}

// postRefresh drops the stored snapshot and forces a live cycle.
func (h *handler) postRefresh(w http.ResponseWriter, r *http.Request) {
	writeSnapshot(w, h.svc.Refresh(r.Context()))
}

func (h *handler) deleteCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context()); err != nil {
		h.log.WithError(err).Error("clear cache")
		http.Error(w, `{"error":"cache unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func wantsRefresh(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("refresh")) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func writeSnapshot(w http.ResponseWriter, snap snapshot.Snapshot) {
	w.Header().Set("X-Price-Provenance", string(snap.Provenance))
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
