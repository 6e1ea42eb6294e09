package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/garnizeh/companies/internal/apperr"
	"github.com/garnizeh/companies/internal/auth"
	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/repository"
)

type AuthHandler struct {
	companies repository.CompanyRepo
	tokens    *auth.Tokens
	verifier  auth.IdentityVerifier
}

// NewAuthHandler creates a new AuthHandler with required dependencies. verifier
// may be nil when identity-provider sign-in is not configured.
func NewAuthHandler(companies repository.CompanyRepo, tokens *auth.Tokens, verifier auth.IdentityVerifier) *AuthHandler {
	return &AuthHandler{companies: companies, tokens: tokens, verifier: verifier}
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleSigninRequest struct {
	IDToken string `json:"id_token"`
}

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		writeMessage(w, "Missing fields", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, apperr.New(apperr.Internal, "hash password", err))
		return
	}

	c := &models.Company{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Description:  req.Description,
		Phone:        req.Phone,
		Address:      req.Address,
	}
	if err := h.companies.CreateCompany(r.Context(), c); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			writeError(w, r, apperr.New(apperr.Conflict, "company already exists", err))
			return
		}
		writeError(w, r, apperr.New(apperr.Internal, "create company", err))
		return
	}

	h.respondToken(w, r, req.Email, "Company created successfully.")
}

// Signin answers 401 for an unknown email and for a wrong password alike.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, "Missing fields", http.StatusBadRequest)
		return
	}

	c, err := h.companies.GetCompany(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		writeError(w, r, apperr.New(apperr.Internal, "read company", err))
		return
	}
	if c == nil || !auth.CheckPassword(c.PasswordHash, req.Password) {
		writeError(w, r, apperr.New(apperr.Unauthorized, "Incorrect email or password.", nil))
		return
	}

	h.respondToken(w, r, c.Email, "Company signed in successfully.")
}

// SigninGoogle exchanges a verified identity-provider token for a bearer token.
// The company must already be registered.
func (h *AuthHandler) SigninGoogle(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		writeMessage(w, auth.ErrIdentityDisabled.Error(), http.StatusNotImplemented)
		return
	}

	var req googleSigninRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IDToken == "" {
		writeMessage(w, "Missing fields", http.StatusBadRequest)
		return
	}

	email, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityDisabled) {
			writeMessage(w, err.Error(), http.StatusNotImplemented)
			return
		}
		writeError(w, r, apperr.New(apperr.Unauthorized, "invalid identity token", err))
		return
	}

	c, err := h.companies.GetCompany(r.Context(), email)
	if err != nil {
		writeError(w, r, apperr.New(apperr.Internal, "read company", err))
		return
	}
	if c == nil {
		writeError(w, r, apperr.New(apperr.NotFound, "company not found", nil))
		return
	}

	h.respondToken(w, r, c.Email, "Company signed in successfully.")
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, email, msg string) {
	token, err := h.tokens.Issue(email)
	if err != nil {
		writeError(w, r, apperr.New(apperr.Internal, "sign token", err))
		return
	}

	writeJSON(w, authResponse{Message: msg, Token: token}, http.StatusOK)
}
