package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexhop/gateway/internal/util"
)

// writeSelfSignedPair generates a throwaway server identity and writes
// it as PEM files under dir.
func writeSelfSignedPair(t *testing.T, dir string) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile,
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestLoadServerConfig(t *testing.T) {
	t.Parallel()

	certFile, keyFile := writeSelfSignedPair(t, t.TempDir())

	cfg, err := LoadServerConfig(certFile, keyFile)
	require.NoError(t, err)

	require.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Equal(t, []string{"h2", "http/1.1"}, cfg.NextProtos)
}

func TestLoadServerConfig_MissingCert(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, keyFile := writeSelfSignedPair(t, dir)

	_, err := LoadServerConfig(filepath.Join(dir, "nope.pem"), keyFile)
	require.Error(t, err)

	var tlsErr *util.TLSConfigError
	require.ErrorAs(t, err, &tlsErr)
	assert.Contains(t, err.Error(), "certificate file not readable")
}

func TestLoadServerConfig_MissingKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	certFile, _ := writeSelfSignedPair(t, dir)

	_, err := LoadServerConfig(certFile, filepath.Join(dir, "nope.pem"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key file not readable")
}

func TestLoadServerConfig_DirectoryPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, keyFile := writeSelfSignedPair(t, dir)

	_, err := LoadServerConfig(dir, keyFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestLoadServerConfig_MismatchedPair(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()
	certFile, _ := writeSelfSignedPair(t, dirA)
	_, otherKey := writeSelfSignedPair(t, dirB)

	_, err := LoadServerConfig(certFile, otherKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load key pair")
}

func TestClientConfig(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig(false, "backend.internal")
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Equal(t, "backend.internal", cfg.ServerName)
	assert.False(t, cfg.InsecureSkipVerify)

	cfg = ClientConfig(true, "backend.internal")
	assert.True(t, cfg.InsecureSkipVerify)
}
