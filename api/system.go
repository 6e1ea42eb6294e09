package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PendingCounter reports how many job descriptions trail the matching service.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type SystemHandler struct {
	DB     Pinger
	Ledger PendingCounter
}

type healthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	PendingSync *int   `json:"pending_sync,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Service: "companies"}
	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			logger.Error("health: database unreachable", "err", err)
			resp.Status = "unavailable"
			writeJSON(w, resp, http.StatusServiceUnavailable)
			return
		}
	}
	if h.Ledger != nil {
		if n, err := h.Ledger.CountPending(ctx); err == nil {
			resp.PendingSync = &n
		}
	}

	writeJSON(w, resp, http.StatusOK)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": version, "buildTime": buildTime}, http.StatusOK)
	}
}
