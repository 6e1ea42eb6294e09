package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/garnizeh/companies/internal/apperr"
	"github.com/garnizeh/companies/internal/jobdesc"
	"github.com/garnizeh/companies/internal/models"
)

type JobDescriptionHandler struct {
	sync *jobdesc.Synchronizer
}

func NewJobDescriptionHandler(sync *jobdesc.Synchronizer) *JobDescriptionHandler {
	return &JobDescriptionHandler{sync: sync}
}

func (h *JobDescriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var jd models.JobDescription
	if err := decodeValidated(r, jobDescriptionSchema, &jd); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.sync.Create(r.Context(), email, &jd)
	if err != nil {
		writeSyncError(w, r, err, res)
		return
	}

	writeJSON(w, messageResponse{Message: "Job description uploaded successfully.", ID: res.ID, SyncState: res.State}, http.StatusCreated)
}

func (h *JobDescriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	jd, err := h.sync.Get(r.Context(), email, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, jd, http.StatusOK)
}

// List returns the caller's postings, most recent first.
func (h *JobDescriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	offset, amount, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.sync.List(r.Context(), email, offset, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, out, http.StatusOK)
}

// Update replaces the whole posting and re-pushes it.
func (h *JobDescriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var jd models.JobDescription
	if err := decodeValidated(r, jobDescriptionSchema, &jd); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.sync.Update(r.Context(), mux.Vars(r)["id"], email, &jd)
	if err != nil {
		writeSyncError(w, r, err, res)
		return
	}

	writeJSON(w, messageResponse{Message: "Job description updated successfully.", ID: res.ID, SyncState: res.State}, http.StatusOK)
}

func (h *JobDescriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	res, err := h.sync.Delete(r.Context(), mux.Vars(r)["id"], email)
	if err != nil {
		writeSyncError(w, r, err, res)
		return
	}

	writeJSON(w, messageResponse{Message: "Job description deleted successfully.", ID: res.ID, SyncState: res.State}, http.StatusOK)
}

// ToMatch serves the matching service; no token is required.
func (h *JobDescriptionHandler) ToMatch(w http.ResponseWriter, r *http.Request) {
	m, err := h.sync.ReadForMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, m, http.StatusOK)
}

func (h *JobDescriptionHandler) ToNotify(w http.ResponseWriter, r *http.Request) {
	n, err := h.sync.ReadForNotify(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, n, http.StatusOK)
}

// pagination reads offset and amount, defaulting to 0 and 10.
func pagination(r *http.Request) (int, int, error) {
	q := r.URL.Query()

	offset := 0
	if o := q.Get("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 {
			return 0, 0, apperr.New(apperr.Validation, "invalid offset", nil)
		}
		offset = v
	}

	amount := defaultAmount
	if a := q.Get("amount"); a != "" {
		v, err := strconv.Atoi(a)
		if err != nil || v < 0 || v > maxAmount {
			return 0, 0, apperr.New(apperr.Validation, "invalid amount", nil)
		}
		amount = v
	}

	return offset, amount, nil
}
