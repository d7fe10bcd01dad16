package config

import (
	"os"
	"strconv"

	"github.com/nexhop/gateway/internal/observability"
	"github.com/nexhop/gateway/internal/util"
)

// Default listener ports.
const (
	DefaultHTTPPort  = 8080
	DefaultHTTPSPort = 8443
)

// ServerConfig holds process-level configuration sourced from the
// environment: bind ports for the plaintext and TLS endpoints, the TLS
// server identity, and the route configuration path.
type ServerConfig struct {
	HTTPPort  int
	HTTPSPort int

	// TLSCertPath and TLSKeyPath locate the single inbound server
	// identity. When either is empty the TLS listener is disabled.
	TLSCertPath string
	TLSKeyPath  string

	ProxyConfigPath string

	// MetricsPort serves the Prometheus endpoint when non-zero.
	MetricsPort int
}

// TLSEnabled reports whether the TLS listener should be started.
func (c *ServerConfig) TLSEnabled() bool {
	return c.TLSCertPath != "" && c.TLSKeyPath != ""
}

// FromEnv loads server configuration from environment variables.
// Invalid port values fall back to defaults with a log line; a missing
// or nonexistent PROXY_CONFIG_PATH is a ConfigError.
func FromEnv(logger observability.Logger) (*ServerConfig, error) {
	cfg := &ServerConfig{
		HTTPPort:    portFromEnv("HTTP_PORT", DefaultHTTPPort, logger),
		HTTPSPort:   portFromEnv("HTTPS_PORT", DefaultHTTPSPort, logger),
		TLSCertPath: os.Getenv("TLS_CERT_PATH"),
		TLSKeyPath:  os.Getenv("TLS_KEY_PATH"),
		MetricsPort: portFromEnv("METRICS_PORT", 0, logger),
	}

	if !cfg.TLSEnabled() {
		logger.Info("TLS_CERT_PATH or TLS_KEY_PATH not set, TLS listener disabled")
	}

	path := os.Getenv("PROXY_CONFIG_PATH")
	if path == "" {
		return nil, util.NewConfigError("PROXY_CONFIG_PATH",
			"environment variable is required but not set")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, util.NewConfigErrorWithCause("PROXY_CONFIG_PATH",
			"points to a non-existent file: "+path, err)
	}
	cfg.ProxyConfigPath = path

	return cfg, nil
}

// portFromEnv reads a port from the environment, falling back to def
// on absence or invalid values.
func portFromEnv(name string, def int, logger observability.Logger) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 0 || port > 65535 {
		logger.Error("invalid port value, using default",
			observability.String("var", name),
			observability.String("value", raw),
			observability.Int("default", def),
		)
		return def
	}
	return port
}
