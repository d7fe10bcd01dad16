package proxy

import (
	"net/http"
	"strings"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/router"
)

// hopHeaders are headers that must not be forwarded to the backend.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// BackendPath composes the outbound request path for a matched route.
// With strip_listen_path the matched listen-path prefix is dropped and
// only the remainder is appended to the backend base path; otherwise
// the full inbound path is appended.
func BackendPath(route *config.RouteEntry, m *router.Match, inboundPath string) string {
	if route.StripListenPath {
		return JoinPaths(route.BackendPath, m.Remainder)
	}
	return JoinPaths(route.BackendPath, inboundPath)
}

// JoinPaths concatenates two path fragments with exactly one slash
// between them, never producing "//" and never dropping the separator.
func JoinPaths(base, suffix string) string {
	base = strings.TrimSuffix(base, "/")
	suffix = strings.TrimPrefix(suffix, "/")
	switch {
	case base == "" && suffix == "":
		return "/"
	case suffix == "":
		return base
	default:
		return base + "/" + suffix
	}
}

// BackendHost returns the Host header value for the outbound request
// per the route's preserve_host_header policy.
func BackendHost(route *config.RouteEntry, inboundHost string) string {
	if route.PreserveHostHeader {
		return inboundHost
	}
	return route.BackendAddr()
}

// removeHopHeaders strips hop-by-hop headers in place.
func removeHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}
