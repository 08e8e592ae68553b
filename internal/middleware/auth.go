package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/internal/auth"
	"github.com/mikews93/deusrex-sub000/pkg/jwtutil"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

// PublicRoute identifies a method+path pair that bypasses authentication.
// Unauthenticated routes are an explicit allow-list, never inferred.
type PublicRoute struct {
	Method string
	Path   string
}

// Authenticate verifies the bearer token and resolves the principal before
// any handler runs. The principal is attached both to the echo context and
// to the request context as an immutable value.
func Authenticate(resolver *auth.Resolver, allowList []PublicRoute) echo.MiddlewareFunc {
	allowed := make(map[PublicRoute]struct{}, len(allowList))
	for _, route := range allowList {
		allowed[route] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := PublicRoute{Method: c.Request().Method, Path: c.Request().URL.Path}
			if _, ok := allowed[route]; ok {
				return next(c)
			}

			log := logger.FromContext(c)

			tokenString, err := jwtutil.FromAuthHeader(c.Request().Header.Get("Authorization"))
			if err != nil {
				log.Warn("Missing authorization token")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			claims, err := jwtutil.VerifyToken(tokenString)
			if err != nil {
				// A configuration failure is ours, not the caller's; surface it
				// generically and log loudly so operators can tell the two apart.
				if apperr.ErrorCode(err) == apperr.EConfiguration {
					log.Error("Token verification misconfigured", zap.Error(err))
					prometheus.RecordAuthError("configuration_error")
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
				}
				log.Warn("Invalid token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			principal, err := resolver.Resolve(c.Request().Context(), claims)
			if err != nil {
				log.Error("Principal resolution failed", zap.Error(err))
				prometheus.RecordAuthError("resolution_failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}
			if principal == nil {
				log.Warn("No principal for verified token",
					zap.String("subject", claims.Subject))
				prometheus.RecordAuthError("unknown_principal")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown principal"})
			}

			c.Set("principal", principal)
			ctx := auth.WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))

			log.Debug("Request authenticated",
				zap.Uint("user_id", principal.UserID),
				zap.Uint("organization_id", principal.OrganizationID),
				zap.String("role", principal.Role))

			return next(c)
		}
	}
}

// RequireOrganization ensures a non-administrative principal carries a
// resolved organization. Admin principals may act across tenants, subject to
// each downstream operation's own rules.
func RequireOrganization(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		principal, ok := PrincipalFromEcho(c)
		if !ok {
			log.Error("Missing principal in organization check")
			prometheus.RecordAuthError("missing_principal")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}

		if principal.OrganizationID == 0 && !principal.IsAdmin() {
			log.Warn("Missing organization context",
				zap.Uint("user_id", principal.UserID),
				zap.String("role", principal.Role))
			prometheus.TenantContextMissingCounter.Inc()
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "organization context required",
				"message": "Please select an organization before accessing this resource",
			})
		}

		return next(c)
	}
}

// PrincipalFromEcho retrieves the resolved principal from the Echo context.
func PrincipalFromEcho(c echo.Context) (*auth.Principal, bool) {
	principal, ok := c.Get("principal").(*auth.Principal)
	return principal, ok
}
