// Package middleware holds shared echo middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Anvita004/transcriptpro/pkg/token"
)

// ContextKey is the type for context keys
type ContextKey string

// AgentContextKey is the context key for the authenticated agent claims.
const AgentContextKey ContextKey = "agent"

// AgentAuth validates the agent bearer token on ingest routes. With token
// auth unconfigured the middleware passes everything through, which is the
// expected mode for local single-user deployments.
func AgentAuth(manager *token.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !manager.Enabled() {
				return next(c)
			}

			raw := extractBearer(c.Request())
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}

			claims, err := manager.Validate(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(string(AgentContextKey), claims)
			return next(c)
		}
	}
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
