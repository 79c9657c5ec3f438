package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"memgraph/pkg/auth"

	"go.uber.org/zap"
)

// Authenticate resolves the calling office from a Bearer token. When
// no validator is configured (development without JWT_SECRET), the
// X-Office-ID header is trusted instead.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				officeID := r.Header.Get("X-Office-ID")
				if officeID == "" {
					respondUnauthorized(w, "missing X-Office-ID header")
					return
				}
				ctx := auth.SetOfficeInContext(r.Context(), &auth.OfficeContext{OfficeID: officeID})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := extractToken(r)
			if token == "" {
				respondUnauthorized(w, "missing authentication token")
				return
			}

			office, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				respondUnauthorized(w, "invalid token")
				return
			}

			ctx := auth.SetOfficeInContext(r.Context(), office)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return authHeader
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}
