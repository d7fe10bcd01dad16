package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexhop/gateway/internal/util"
)

// Backend protocol constants.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Default values for optional RouteEntry fields.
const (
	DefaultBackendPort      = 80
	DefaultBackendPath      = "/"
	DefaultConnectTimeoutMS = 3000
	DefaultReadTimeoutMS    = 30000
	DefaultWriteTimeoutMS   = 30000
)

// RouteEntry is one configured route: a listen path pattern mapped to
// a single backend, plus the per-route forwarding policy.
type RouteEntry struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	ListenPath string `yaml:"listen_path" json:"listen_path"`

	BackendProtocol string `yaml:"backend_protocol" json:"backend_protocol"`
	BackendHost     string `yaml:"backend_host" json:"backend_host"`
	BackendPort     int    `yaml:"backend_port" json:"backend_port"`
	BackendPath     string `yaml:"backend_path" json:"backend_path"`

	StripListenPath             bool `yaml:"strip_listen_path" json:"strip_listen_path"`
	PreserveHostHeader          bool `yaml:"preserve_host_header" json:"preserve_host_header"`
	SkipCertificateVerification bool `yaml:"skip_certificate_verification" json:"skip_certificate_verification"`

	// Backend timeouts in milliseconds. A zero or absent value selects
	// the package default; an unbounded timeout cannot be configured.
	BackendConnectTimeoutMS int `yaml:"backend_connect_timeout_ms" json:"backend_connect_timeout_ms"`
	BackendReadTimeoutMS    int `yaml:"backend_read_timeout_ms" json:"backend_read_timeout_ms"`
	BackendWriteTimeoutMS   int `yaml:"backend_write_timeout_ms" json:"backend_write_timeout_ms"`

	// RateLimitRPS caps requests per second for this route. Zero
	// disables rate limiting.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" json:"rate_limit_burst"`

	// CircuitBreaker enables fail-fast behavior after consecutive
	// backend connect failures.
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// ApplyDefaults fills in zero-valued optional fields. Timeouts of
// zero are treated as unset rather than unbounded, so an explicit
// zero also gets the default.
func (r *RouteEntry) ApplyDefaults() {
	if r.BackendPort == 0 {
		r.BackendPort = DefaultBackendPort
	}
	if r.BackendPath == "" {
		r.BackendPath = DefaultBackendPath
	}
	if r.BackendConnectTimeoutMS == 0 {
		r.BackendConnectTimeoutMS = DefaultConnectTimeoutMS
	}
	if r.BackendReadTimeoutMS == 0 {
		r.BackendReadTimeoutMS = DefaultReadTimeoutMS
	}
	if r.BackendWriteTimeoutMS == 0 {
		r.BackendWriteTimeoutMS = DefaultWriteTimeoutMS
	}
	if r.RateLimitRPS > 0 && r.RateLimitBurst == 0 {
		r.RateLimitBurst = int(r.RateLimitRPS)
		if r.RateLimitBurst == 0 {
			r.RateLimitBurst = 1
		}
	}
}

// ConnectTimeout returns the backend connect timeout as a duration.
func (r *RouteEntry) ConnectTimeout() time.Duration {
	return time.Duration(r.BackendConnectTimeoutMS) * time.Millisecond
}

// ReadTimeout returns the backend read timeout as a duration.
func (r *RouteEntry) ReadTimeout() time.Duration {
	return time.Duration(r.BackendReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the backend write timeout as a duration.
func (r *RouteEntry) WriteTimeout() time.Duration {
	return time.Duration(r.BackendWriteTimeoutMS) * time.Millisecond
}

// BackendAddr returns the backend host:port pair.
func (r *RouteEntry) BackendAddr() string {
	return fmt.Sprintf("%s:%d", r.BackendHost, r.BackendPort)
}

// IsHTTPS reports whether the backend leg uses TLS.
func (r *RouteEntry) IsHTTPS() bool {
	return r.BackendProtocol == ProtocolHTTPS
}

// Validate checks a single route entry. Cross-entry checks (duplicate
// ids) are performed by ValidateEntries.
func (r *RouteEntry) Validate() error {
	if r.ID == "" {
		return util.NewConfigError("id", "route id is required")
	}
	if r.Name == "" {
		return util.NewConfigError("name", fmt.Sprintf("route %s: name is required", r.ID))
	}
	if r.ListenPath == "" {
		return util.NewConfigError("listen_path", fmt.Sprintf("route %s: listen_path is required", r.ID))
	}
	if r.BackendHost == "" {
		return util.NewConfigError("backend_host", fmt.Sprintf("route %s: backend_host is required", r.ID))
	}
	switch r.BackendProtocol {
	case ProtocolHTTP, ProtocolHTTPS:
	default:
		return util.NewConfigError("backend_protocol",
			fmt.Sprintf("route %s: backend_protocol must be http or https, got %q", r.ID, r.BackendProtocol))
	}
	if r.BackendPort < 1 || r.BackendPort > 65535 {
		return util.NewConfigError("backend_port",
			fmt.Sprintf("route %s: backend_port %d out of range", r.ID, r.BackendPort))
	}
	if r.BackendConnectTimeoutMS < 0 || r.BackendReadTimeoutMS < 0 || r.BackendWriteTimeoutMS < 0 {
		return util.NewConfigError("timeouts", fmt.Sprintf("route %s: timeouts must be non-negative", r.ID))
	}
	if r.RateLimitRPS < 0 {
		return util.NewConfigError("rate_limit_rps", fmt.Sprintf("route %s: rate_limit_rps must be non-negative", r.ID))
	}
	return validateListenPath(r.ID, r.ListenPath)
}

// validateListenPath checks the pattern shape: no empty segments, no
// duplicate parameter names within one pattern.
func validateListenPath(id, pattern string) error {
	p := strings.TrimPrefix(pattern, "/")
	if p == "" {
		// Root pattern matches everything.
		return nil
	}
	seen := map[string]bool{}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return util.NewConfigError("listen_path",
				fmt.Sprintf("route %s: listen_path %q contains an empty segment", id, pattern))
		}
		if strings.HasPrefix(seg, ":") {
			name := seg[1:]
			if name == "" {
				return util.NewConfigError("listen_path",
					fmt.Sprintf("route %s: listen_path %q contains an unnamed parameter", id, pattern))
			}
			if seen[name] {
				return util.NewConfigError("listen_path",
					fmt.Sprintf("route %s: listen_path %q repeats parameter %q", id, pattern, name))
			}
			seen[name] = true
		}
	}
	return nil
}

// ValidateEntries validates a full set of route entries, including
// cross-entry invariants.
func ValidateEntries(entries []RouteEntry) error {
	ids := make(map[string]bool, len(entries))
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return err
		}
		if ids[entries[i].ID] {
			return util.NewConfigError("id", fmt.Sprintf("duplicate route id: %s", entries[i].ID))
		}
		ids[entries[i].ID] = true
	}
	return nil
}
