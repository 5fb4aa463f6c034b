package middleware

import (
	"net/http"

	"github.com/florelink/florelink-backend/api/responses"
	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/logger"
)

// RequireRole rejects callers whose token role is outside the allow-list.
// Runs after Auth, so the role is already validated and in the context.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerRole := RoleFromContext(r.Context())
			for _, role := range roles {
				if callerRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed"))
		})
	}
}
