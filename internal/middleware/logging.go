package middleware

import (
	"net/http"
	"time"

	"github.com/nexhop/gateway/internal/observability"
	"github.com/nexhop/gateway/internal/util"
)

// Logging returns a middleware that writes one access log line per
// request.
func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := util.ContextWithStartTime(r.Context(), start)
			r = r.WithContext(ctx)

			sw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			requestID := util.RequestIDFromContext(r.Context())
			route := util.RouteFromContext(r.Context())

			logger.Info("http request",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("route", route),
				observability.Int("status", sw.StatusCode),
				observability.Int64("size", sw.BytesWritten),
				observability.Duration("duration", duration),
				observability.String("remote_addr", r.RemoteAddr),
				observability.String("request_id", requestID),
			)
		})
	}
}
