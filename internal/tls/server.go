// Package tls builds TLS configurations for both network legs: the
// inbound terminating listener (single server identity) and the
// client side of HTTPS backend calls.
package tls

import (
	"crypto/tls"
	"os"

	"github.com/nexhop/gateway/internal/util"
)

// alpnProtocols advertises HTTP/2 and HTTP/1.1 on the inbound
// terminating listener.
var alpnProtocols = []string{"h2", "http/1.1"}

// LoadServerConfig loads the inbound server identity from PEM files
// and returns a tls.Config for the terminating listener. All routes
// share this one identity.
func LoadServerConfig(certFile, keyFile string) (*tls.Config, error) {
	if err := checkReadable(certFile); err != nil {
		return nil, util.NewTLSConfigError("certificate file not readable: "+certFile, err)
	}
	if err := checkReadable(keyFile); err != nil {
		return nil, util.NewTLSConfigError("private key file not readable: "+keyFile, err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, util.NewTLSConfigError("failed to load key pair", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   alpnProtocols,
	}, nil
}

// checkReadable verifies that the path exists and is a regular file.
func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return util.NewTLSConfigError(path+" is a directory", nil)
	}
	return nil
}
