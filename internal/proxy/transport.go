package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/nexhop/gateway/internal/config"
	gwtls "github.com/nexhop/gateway/internal/tls"
)

// newTransport builds the per-route transport. The dial (including
// the backend TLS handshake) is bounded by the route's connect
// timeout; the dialed connection is wrapped so that every read and
// write chunk carries its own deadline, giving per-chunk read/write
// timeouts instead of a whole-call bound. Connection reuse across
// requests is an optimization only.
func newTransport(route *config.RouteEntry) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   route.ConnectTimeout(),
		KeepAlive: 30 * time.Second,
	}
	readTimeout := route.ReadTimeout()
	writeTimeout := route.WriteTimeout()

	tr := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, read: readTimeout, write: writeTimeout}, nil
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   route.ConnectTimeout(),
		ResponseHeaderTimeout: route.ReadTimeout(),
		ExpectContinueTimeout: 1 * time.Second,
	}

	if route.IsHTTPS() {
		tr.TLSClientConfig = gwtls.ClientConfig(route.SkipCertificateVerification, route.BackendHost)
	}

	return tr
}

// deadlineConn applies a fresh deadline to every read and write so
// that each chunk of the request body and each chunk of the response
// is individually bounded.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}
