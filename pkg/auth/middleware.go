package auth

import (
	"net/http"

	"studiobook/pkg/logger"
)

// Identity headers set by the gateway after it has verified the caller's
// token. The service trusts them as-is; JWT handling stays upstream.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
	HeaderUserAdmin = "X-User-Admin"
)

// Identity extracts the caller's identity headers into a Principal on the
// request context. Requests without a user id are rejected with 401.
func Identity(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				log.Warn("Request without identity headers",
					"method", r.Method,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			p := Principal{
				ID:      userID,
				Name:    r.Header.Get(HeaderUserName),
				Email:   r.Header.Get(HeaderUserEmail),
				IsAdmin: r.Header.Get(HeaderUserAdmin) == "true",
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
