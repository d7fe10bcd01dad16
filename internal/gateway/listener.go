package gateway

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nexhop/gateway/internal/observability"
)

// ListenerConfig describes one network endpoint.
type ListenerConfig struct {
	Name string
	Bind string
	Port int

	// TLS, when non-nil, makes this a terminating TLS endpoint using
	// the configured server identity. ALPN on the config enables
	// HTTP/2 stream multiplexing; the plaintext endpoint serves
	// HTTP/1.1.
	TLS *tls.Config
}

// Listener owns one accepting endpoint. Both endpoints feed the same
// handler, so the routing and forwarding pipeline is shared.
type Listener struct {
	config  ListenerConfig
	server  *http.Server
	handler http.Handler
	logger  observability.Logger
	running atomic.Bool
}

// ListenerOption is a functional option for configuring a listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger observability.Logger) ListenerOption {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a new listener.
func NewListener(cfg ListenerConfig, handler http.Handler, opts ...ListenerOption) *Listener {
	l := &Listener{
		config:  cfg,
		handler: handler,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.config.Name
}

// Port returns the port the listener is bound to. After Start with a
// zero configured port this is the kernel-assigned port.
func (l *Listener) Port() int {
	return l.config.Port
}

// Address returns the listener bind address.
func (l *Listener) Address() string {
	bind := l.config.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", bind, l.config.Port)
}

// IsTLS reports whether this endpoint terminates TLS.
func (l *Listener) IsTLS() bool {
	return l.config.TLS != nil
}

// Start binds the endpoint and begins serving in a goroutine. Each
// accepted connection is handled on its own goroutine by net/http, so
// accepting is never blocked by request processing.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener %s is already running", l.config.Name)
	}

	l.server = &http.Server{
		Handler:           l.handler,
		TLSConfig:         l.config.TLS,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.Address(), err)
	}

	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		l.config.Port = addr.Port
	}

	l.running.Store(true)

	l.logger.Info("listener started",
		observability.String("name", l.config.Name),
		observability.String("address", ln.Addr().String()),
		observability.Bool("tls", l.IsTLS()),
	)

	go l.serve(ln)

	return nil
}

// serve runs the accept loop. An inbound TLS handshake failure aborts
// only the affected connection; net/http keeps accepting.
func (l *Listener) serve(ln net.Listener) {
	var err error
	if l.IsTLS() {
		err = l.server.ServeTLS(ln, "", "")
	} else {
		err = l.server.Serve(ln)
	}

	if err != nil && err != http.ErrServerClosed {
		l.logger.Error("listener error",
			observability.String("name", l.config.Name),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop stops the listener gracefully, falling back to a hard close
// when the context expires.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener",
		observability.String("name", l.config.Name),
	)

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.running.Store(false)

	l.logger.Info("listener stopped",
		observability.String("name", l.config.Name),
	)

	return nil
}

// IsRunning returns true if the listener is running.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
