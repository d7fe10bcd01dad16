package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexhop/gateway/internal/observability"
)

func writeConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("proxies: []\n"), 0o600))
	return path
}

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"HTTP_PORT", "HTTPS_PORT", "TLS_CERT_PATH", "TLS_KEY_PATH",
		"PROXY_CONFIG_PATH", "METRICS_PORT",
	} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PROXY_CONFIG_PATH", writeConfigFile(t))

	cfg, err := FromEnv(observability.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, DefaultHTTPSPort, cfg.HTTPSPort)
	assert.Equal(t, 0, cfg.MetricsPort)
	assert.False(t, cfg.TLSEnabled())
}

func TestFromEnv_ExplicitPorts(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PROXY_CONFIG_PATH", writeConfigFile(t))
	t.Setenv("HTTP_PORT", "9080")
	t.Setenv("HTTPS_PORT", "9443")
	t.Setenv("METRICS_PORT", "9100")

	cfg, err := FromEnv(observability.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, 9080, cfg.HTTPPort)
	assert.Equal(t, 9443, cfg.HTTPSPort)
	assert.Equal(t, 9100, cfg.MetricsPort)
}

func TestFromEnv_InvalidPortFallsBack(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PROXY_CONFIG_PATH", writeConfigFile(t))
	t.Setenv("HTTP_PORT", "not-a-port")
	t.Setenv("HTTPS_PORT", "99999")

	cfg, err := FromEnv(observability.NopLogger())
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, DefaultHTTPSPort, cfg.HTTPSPort)
}

func TestFromEnv_TLSEnabled(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PROXY_CONFIG_PATH", writeConfigFile(t))
	t.Setenv("TLS_CERT_PATH", "/etc/tls/cert.pem")
	t.Setenv("TLS_KEY_PATH", "/etc/tls/key.pem")

	cfg, err := FromEnv(observability.NopLogger())
	require.NoError(t, err)
	assert.True(t, cfg.TLSEnabled())
}

func TestFromEnv_TLSRequiresBothPaths(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PROXY_CONFIG_PATH", writeConfigFile(t))
	t.Setenv("TLS_CERT_PATH", "/etc/tls/cert.pem")

	cfg, err := FromEnv(observability.NopLogger())
	require.NoError(t, err)
	assert.False(t, cfg.TLSEnabled())
}

func TestFromEnv_MissingConfigPath(t *testing.T) {
	clearServerEnv(t)

	_, err := FromEnv(observability.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROXY_CONFIG_PATH")
	assert.Contains(t, err.Error(), "required but not set")
}

func TestFromEnv_NonexistentConfigPath(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("PROXY_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := FromEnv(observability.NopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-existent file")
}
