// Package gateway owns the server loop: the pair of listeners
// (plaintext and TLS-terminating) that feed the shared routing and
// forwarding pipeline, plus lifecycle and hot reload of the routing
// table.
package gateway

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/observability"
	"github.com/nexhop/gateway/internal/router"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway owns both endpoints and the active routing table snapshot.
type Gateway struct {
	cfg       *config.ServerConfig
	handle    *router.Handle
	logger    observability.Logger
	metrics   *observability.Metrics
	engine    *gin.Engine
	listeners []*Listener
	state     atomic.Int32
	startTime time.Time
	mu        sync.Mutex

	handler   http.Handler
	tlsConfig *tls.Config

	// onReload runs after a successful table swap. The forwarder hooks
	// in here to drop per-route caches built against the old table.
	onReload func()

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the gateway.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithHandler sets the request handler shared by both listeners.
func WithHandler(handler http.Handler) Option {
	return func(g *Gateway) {
		g.handler = handler
	}
}

// WithTLSConfig sets the inbound TLS server configuration. When nil,
// the TLS listener is not started.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(g *Gateway) {
		g.tlsConfig = cfg
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// WithReloadHook registers a function invoked after each successful
// routing table swap.
func WithReloadHook(fn func()) Option {
	return func(g *Gateway) {
		g.onReload = fn
	}
}

// New creates a new Gateway instance.
func New(cfg *config.ServerConfig, handle *router.Handle, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server configuration is required")
	}
	if handle == nil {
		return nil, fmt.Errorf("routing table handle is required")
	}

	g := &Gateway{
		cfg:             cfg,
		handle:          handle,
		logger:          observability.NopLogger(),
		shutdownTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.handler == nil {
		return nil, fmt.Errorf("request handler is required")
	}

	g.state.Store(int32(StateStopped))

	return g, nil
}

// Start starts both listeners.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("gateway is not in stopped state")
	}

	g.logger.Info("starting gateway",
		observability.Int("routes", g.handle.Load().Len()),
	)

	gin.SetMode(gin.ReleaseMode)
	g.engine = gin.New()
	g.engine.Use(g.recoveryMiddleware())
	g.engine.NoRoute(gin.WrapH(g.handler))

	g.createListeners()

	for _, listener := range g.listeners {
		if err := listener.Start(ctx); err != nil {
			g.stopListeners(ctx)
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start listener %s: %w", listener.Name(), err)
		}
	}

	if g.metrics != nil {
		g.metrics.SetRoutesLoaded(g.handle.Load().Len())
	}

	g.startTime = time.Now()
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.Int("listeners", len(g.listeners)),
	)

	return nil
}

// recoveryMiddleware turns handler panics into 500 responses. A panic
// with http.ErrAbortHandler is re-raised untouched so net/http tears
// the connection down instead of finishing a truncated response with a
// clean terminal chunk.
func (g *Gateway) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}
			g.logger.Error("panic recovered",
				observability.String("path", c.Request.URL.Path),
				observability.Any("panic", r),
			)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// Stop stops the gateway gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return fmt.Errorf("gateway is not running")
	}

	g.logger.Info("stopping gateway")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	g.stopListeners(ctx)

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped")

	return nil
}

// Reload builds a new routing table from the given entries and
// publishes it atomically. In-flight lookups continue against the old
// snapshot; a build failure keeps the previous table serving.
func (g *Gateway) Reload(entries []config.RouteEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	table, err := router.Build(entries)
	if err != nil {
		return fmt.Errorf("invalid route configuration: %w", err)
	}

	g.handle.Swap(table)

	if g.onReload != nil {
		g.onReload()
	}
	if g.metrics != nil {
		g.metrics.SetRoutesLoaded(table.Len())
	}

	g.logger.Info("routing table reloaded",
		observability.Int("routes", table.Len()),
	)

	return nil
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// Listeners returns the gateway's listeners.
func (g *Gateway) Listeners() []*Listener {
	return g.listeners
}

// createListeners builds the plaintext endpoint and, when a TLS
// server identity is configured, the terminating TLS endpoint. Both
// serve the same engine.
func (g *Gateway) createListeners() {
	g.listeners = []*Listener{
		NewListener(ListenerConfig{
			Name: "http",
			Port: g.cfg.HTTPPort,
		}, g.engine, WithListenerLogger(g.logger)),
	}

	if g.tlsConfig != nil {
		g.listeners = append(g.listeners, NewListener(ListenerConfig{
			Name: "https",
			Port: g.cfg.HTTPSPort,
			TLS:  g.tlsConfig,
		}, g.engine, WithListenerLogger(g.logger)))
	}
}

// stopListeners stops all listeners concurrently.
func (g *Gateway) stopListeners(ctx context.Context) {
	var wg sync.WaitGroup

	for _, listener := range g.listeners {
		wg.Add(1)
		go func(l *Listener) {
			defer wg.Done()
			if err := l.Stop(ctx); err != nil {
				g.logger.Error("failed to stop listener",
					observability.String("name", l.Name()),
					observability.Error(err),
				)
			}
		}(listener)
	}

	wg.Wait()
}
