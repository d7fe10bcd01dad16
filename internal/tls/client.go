package tls

import "crypto/tls"

// ClientConfig builds the tls.Config for the backend leg of an HTTPS
// route. When skipVerify is true, certificate chain and hostname
// validation are bypassed entirely for that route; this is an
// explicitly opt-in, trust-reducing mode for non-production backends.
func ClientConfig(skipVerify bool, serverName string) *tls.Config {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: serverName,
	}
	if skipVerify {
		cfg.InsecureSkipVerify = true //nolint:gosec // opt-in per route via skip_certificate_verification
	}
	return cfg
}
