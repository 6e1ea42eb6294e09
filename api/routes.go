package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/companies/internal/auth"
	"github.com/garnizeh/companies/internal/config"
	"github.com/garnizeh/companies/internal/jobdesc"
	"github.com/garnizeh/companies/pkg/repository"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Companies repository.CompanyRepo
	Sync      *jobdesc.Synchronizer
	Tokens    *auth.Tokens
	// Verifier is nil when identity-provider sign-in is disabled.
	Verifier auth.IdentityVerifier
	// Limiter guards the sign-up and sign-in routes; nil disables rate limiting.
	Limiter Limiter
	DB      Pinger
	Ledger  PendingCounter
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain. CORSMiddleware wraps the router itself (see Handler) so
	// preflight requests are answered before method matching.
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	systemHandler := &SystemHandler{DB: deps.DB, Ledger: deps.Ledger}
	authHandler := NewAuthHandler(deps.Companies, deps.Tokens, deps.Verifier)
	companyHandler := NewCompanyHandler(deps.Companies)
	jdHandler := NewJobDescriptionHandler(deps.Sync)

	limit := RateLimit(deps.Limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods(http.MethodGet)
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods(http.MethodGet)
	r.Handle("/companies/sign-up", limit(http.HandlerFunc(authHandler.Signup))).Methods(http.MethodPost)
	r.Handle("/companies/sign-in", limit(http.HandlerFunc(authHandler.Signin))).Methods(http.MethodPost)
	r.Handle("/companies/sign-in-google", limit(http.HandlerFunc(authHandler.SigninGoogle))).Methods(http.MethodPost)
	r.HandleFunc("/companies/search", companyHandler.Search).Methods(http.MethodGet)
	r.HandleFunc("/companies/company/job_description_to_match/{id}", jdHandler.ToMatch).Methods(http.MethodGet)
	r.HandleFunc("/companies/company/job_description_to_notify/{id}", jdHandler.ToNotify).Methods(http.MethodGet)

	// Protected routes
	protected := r.NewRoute().Subrouter()
	protected.Use(JWTAuthMiddleware(deps.Tokens))

	protected.HandleFunc("/companies/company", companyHandler.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/companies/company", companyHandler.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/companies/company/job_description", jdHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/companies/company/job_descriptions", jdHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/companies/company/job_description/{id}", jdHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/companies/company/job_description/{id}", jdHandler.Update).Methods(http.MethodPut)
	protected.HandleFunc("/companies/company/job_description/{id}", jdHandler.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/companies/company/{field}", companyHandler.PatchField).Methods(http.MethodPatch)

	return r
}

// Handler returns the router wrapped for serving.
func Handler(r *mux.Router) http.Handler {
	return CORSMiddleware(r)
}
