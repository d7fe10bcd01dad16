// Package middleware provides the HTTP middleware applied around the
// forwarding pipeline: request ids, access logging, and metrics.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nexhop/gateway/internal/util"
)

// RequestIDHeader is the header name for request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID returns a middleware that attaches a request ID to each
// request. An inbound X-Request-ID is respected; otherwise a new UUID
// is generated. The id is echoed on the response.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := util.ContextWithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(RequestIDHeader, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
