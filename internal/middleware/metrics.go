package middleware

import (
	"net/http"
	"time"

	"github.com/nexhop/gateway/internal/observability"
	"github.com/nexhop/gateway/internal/util"
)

// Metrics returns a middleware that records request counters and
// duration histograms. It also installs the route holder so the
// forwarder can report which route a request matched.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := util.ContextWithRouteHolder(r.Context())
			r = r.WithContext(ctx)

			sw := util.NewStatusCapturingResponseWriter(w)

			next.ServeHTTP(sw, r)

			m.RecordRequest(r.Method, util.RouteFromContext(ctx), sw.StatusCode, time.Since(start))
		})
	}
}

// Chain composes middleware left to right: the first middleware is
// the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
