package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "propreg/pkg/domain-errors"
	"propreg/pkg/platform/httputil"
	"propreg/pkg/requestcontext"
)

// TokenHeader carries the registrar token on admin routes.
const TokenHeader = "X-Admin-Token"

// RequireAdminToken admits only requests presenting expectedToken. An empty
// expectedToken rejects every request.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
