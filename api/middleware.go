package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/companies/internal/auth"
	"github.com/garnizeh/companies/pkg/logging"
)

type ctxKey string

const CtxCompanyEmail ctxKey = "company_email"

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = logging.NewNop()

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *logging.Logger) {
	if l != nil {
		logger = l
	}
}

// CompanyEmail returns the authenticated company email stored by the auth middleware.
func CompanyEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(CtxCompanyEmail).(string)
	return email, ok && email != ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", "err", err, "path", r.URL.Path)
				writeMessage(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// TokenDecoder resolves a bearer token to the company email it was issued for.
type TokenDecoder interface {
	Decode(token string) (string, error)
}

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the token's email in the request context.
func JWTAuthMiddleware(tokens TokenDecoder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeMessage(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			tokenString = strings.TrimSpace(tokenString)
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				writeMessage(w, "Invalid Authorization header", http.StatusUnauthorized)
				return
			}

			email, err := tokens.Decode(tokenString)
			if err != nil {
				logger.Debug("token rejected", "err", err)
				writeMessage(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CtxCompanyEmail, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// JWTAuthMiddlewareWithSecret is JWTAuthMiddleware over HS256 tokens signed with secret.
func JWTAuthMiddlewareWithSecret(secret string) mux.MiddlewareFunc {
	return JWTAuthMiddleware(auth.NewTokens(secret, 0))
}
