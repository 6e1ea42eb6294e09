package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/garnizeh/companies/internal/apperr"
	"github.com/garnizeh/companies/internal/jobdesc"
	"github.com/garnizeh/companies/internal/models"
)

type errorResponse struct {
	Error     string           `json:"error"`
	ID        string           `json:"id,omitempty"`
	SyncState models.SyncState `json:"sync_state,omitempty"`
}

type messageResponse struct {
	Message   string           `json:"message"`
	ID        string           `json:"id,omitempty"`
	SyncState models.SyncState `json:"sync_state,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "err", err)
	}
}

func writeMessage(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, errorResponse{Error: msg}, status)
}

// writeError maps err to a status code. Internal errors are logged and hidden
// from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := describe(r, err)
	writeJSON(w, errorResponse{Error: msg}, status)
}

// writeSyncError is writeError for synchronizer mutations. When the local change
// was kept the body carries its id and sync state.
func writeSyncError(w http.ResponseWriter, r *http.Request, err error, res jobdesc.Result) {
	status, msg := describe(r, err)
	resp := errorResponse{Error: msg}
	if res.State == models.SyncLocalOnly {
		resp.ID = res.ID
		resp.SyncState = res.State
	}
	writeJSON(w, resp, status)
}

func describe(r *http.Request, err error) (int, string) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if kind == apperr.Internal {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		return status, http.StatusText(status)
	}

	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Msg != "" {
		return status, ae.Msg
	}
	return status, err.Error()
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.RemoteSyncFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
