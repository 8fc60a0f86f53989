package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"veristry/pkg/domain"
)

// CallerValidator resolves a bearer token to the caller's principal address.
// Token issuance is out-of-band relayer onboarding; the registries only need
// to know which principal is calling so the access gate can check its roles.
type CallerValidator interface {
	ValidateToken(tokenString string) (domain.Principal, error)
}

type contextKeyCaller struct{}

// ContextKeyCaller is exported for use in handlers and tests.
var ContextKeyCaller = contextKeyCaller{}

// GetCaller retrieves the authenticated caller principal from the context.
func GetCaller(ctx context.Context) domain.Principal {
	caller, ok := ctx.Value(ContextKeyCaller).(domain.Principal)
	if !ok {
		return domain.ZeroPrincipal
	}
	return caller
}

// RequireCaller authenticates the request and stores the caller principal in
// context. Requests without a valid token never reach a registry.
func RequireCaller(validator CallerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeAuthError(w, "missing bearer token")
				return
			}
			caller, err := validator.ValidateToken(strings.TrimPrefix(authHeader, bearerPrefix))
			if err != nil {
				logger.WarnContext(r.Context(), "caller authentication failed",
					"error", err.Error(),
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), ContextKeyCaller, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             "unauthorized",
		"error_description": desc,
	})
}
