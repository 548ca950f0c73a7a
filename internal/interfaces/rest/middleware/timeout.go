package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds request handling. The deadline also propagates through the
// request context so gateway calls triggered by the handler are cut off with it.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			timeoutHandler := http.TimeoutHandler(
				next,
				timeout,
				`{"success":false,"error":{"code":"TIMEOUT","message":"request timed out"}}`,
			)

			timeoutHandler.ServeHTTP(w, r)
		})
	}
}
