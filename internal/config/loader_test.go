package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
proxies:
  - id: users
    name: User Service
    listen_path: /api/v1/users
    backend_protocol: http
    backend_host: users.internal
    backend_port: 8081
    backend_path: /users
    strip_listen_path: true
  - id: orders
    name: Order Service
    listen_path: /api/v1/orders/:id
    backend_protocol: https
    backend_host: orders.internal
    preserve_host_header: true
    skip_certificate_verification: true
    backend_read_timeout_ms: 5000
`

func TestParseRoutes(t *testing.T) {
	t.Parallel()

	entries, err := ParseRoutes([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	users := entries[0]
	assert.Equal(t, "users", users.ID)
	assert.Equal(t, "User Service", users.Name)
	assert.Equal(t, "/api/v1/users", users.ListenPath)
	assert.Equal(t, ProtocolHTTP, users.BackendProtocol)
	assert.Equal(t, "users.internal", users.BackendHost)
	assert.Equal(t, 8081, users.BackendPort)
	assert.Equal(t, "/users", users.BackendPath)
	assert.True(t, users.StripListenPath)
	assert.False(t, users.PreserveHostHeader)

	orders := entries[1]
	assert.Equal(t, "orders", orders.ID)
	assert.Equal(t, ProtocolHTTPS, orders.BackendProtocol)
	assert.True(t, orders.PreserveHostHeader)
	assert.True(t, orders.SkipCertificateVerification)

	// Omitted fields are defaulted.
	assert.Equal(t, DefaultBackendPort, orders.BackendPort)
	assert.Equal(t, DefaultBackendPath, orders.BackendPath)
	assert.Equal(t, DefaultConnectTimeoutMS, orders.BackendConnectTimeoutMS)
	assert.Equal(t, 5000, orders.BackendReadTimeoutMS)
	assert.Equal(t, DefaultWriteTimeoutMS, orders.BackendWriteTimeoutMS)
}

func TestParseRoutes_OrderPreserved(t *testing.T) {
	t.Parallel()

	entries, err := ParseRoutes([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "users", entries[0].ID)
	assert.Equal(t, "orders", entries[1].ID)
}

func TestParseRoutes_EmptyFile(t *testing.T) {
	t.Parallel()

	entries, err := ParseRoutes([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseRoutes_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := ParseRoutes([]byte("proxies: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseRoutes_InvalidEntry(t *testing.T) {
	t.Parallel()

	yaml := `
proxies:
  - id: bad
    name: Bad
    listen_path: /bad
    backend_protocol: gopher
    backend_host: bad.internal
`
	_, err := ParseRoutes([]byte(yaml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend_protocol must be http or https")
}

func TestParseRoutes_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_BACKEND_HOST", "real.internal")
	os.Unsetenv("TEST_UNSET_PORT")

	yaml := `
proxies:
  - id: svc
    name: Service
    listen_path: /svc
    backend_protocol: http
    backend_host: ${TEST_BACKEND_HOST}
    backend_port: ${TEST_UNSET_PORT:-9090}
`
	entries, err := ParseRoutes([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "real.internal", entries[0].BackendHost)
	assert.Equal(t, 9090, entries[0].BackendPort)
}

func TestSubstituteEnvVars_EscapedDollar(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a ${literal} b", substituteEnvVars("a $${literal} b"))
}

func TestLoadRoutes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	entries, err := LoadRoutes(path)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadRoutes_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadRoutes(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadRoutesFromReader(t *testing.T) {
	t.Parallel()

	entries, err := LoadRoutesFromReader(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
