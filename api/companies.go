package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/companies/internal/apperr"
	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/repository"
)

const (
	defaultAmount = 10
	maxAmount     = 100
)

type CompanyHandler struct {
	companies repository.CompanyRepo
}

func NewCompanyHandler(companies repository.CompanyRepo) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

type profileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

func (h *CompanyHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := h.companies.GetCompany(r.Context(), email)
	if err != nil {
		writeError(w, r, apperr.New(apperr.Internal, "read company", err))
		return
	}
	if c == nil {
		writeError(w, r, apperr.New(apperr.NotFound, "Company not found.", nil))
		return
	}

	writeJSON(w, c, http.StatusOK)
}

// UpdateProfile overwrites every profile field.
func (h *CompanyHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	h.apply(w, r, models.ProfileUpdate(req.Name, req.Description, req.Phone, req.Address))
}

// PatchField overwrites one of description, phone or address.
func (h *CompanyHandler) PatchField(w http.ResponseWriter, r *http.Request) {
	field, ok := models.ParseProfileField(mux.Vars(r)["field"])
	if !ok {
		writeMessage(w, "unknown field", http.StatusNotFound)
		return
	}

	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	h.apply(w, r, models.FieldUpdate(field, req.Value))
}

func (h *CompanyHandler) apply(w http.ResponseWriter, r *http.Request, u models.CompanyUpdate) {
	email, ok := CompanyEmail(r.Context())
	if !ok {
		writeMessage(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := u.Validate(); err != nil {
		writeError(w, r, apperr.New(apperr.Validation, err.Error(), nil))
		return
	}

	if err := h.companies.UpdateCompany(r.Context(), email, u); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, apperr.New(apperr.NotFound, "Company not found.", err))
			return
		}
		writeError(w, r, apperr.New(apperr.Internal, "update company", err))
		return
	}

	writeJSON(w, messageResponse{Message: "Company updated successfully."}, http.StatusOK)
}

// Search lists companies whose name starts with, then contains, the name query.
func (h *CompanyHandler) Search(w http.ResponseWriter, r *http.Request) {
	offset, amount, err := pagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := h.companies.SearchCompanies(r.Context(), r.URL.Query().Get("name"), offset, amount)
	if err != nil {
		writeError(w, r, apperr.New(apperr.Internal, "search companies", err))
		return
	}

	writeJSON(w, out, http.StatusOK)
}
