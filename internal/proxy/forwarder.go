package proxy

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/observability"
	"github.com/nexhop/gateway/internal/router"
	"github.com/nexhop/gateway/internal/util"
)

// Forwarder routes inbound requests through the routing table and
// streams them to the selected backend. It implements http.Handler
// and serves as the shared pipeline behind both listeners.
type Forwarder struct {
	handle        *router.Handle
	logger        observability.Logger
	metrics       *observability.Metrics
	flushInterval time.Duration

	mu         sync.RWMutex
	transports map[string]*http.Transport
	breakers   map[string]*gobreaker.CircuitBreaker
	limiters   map[string]*rate.Limiter
}

// Option is a functional option for configuring the forwarder.
type Option func(*Forwarder)

// WithLogger sets the logger for the forwarder.
func WithLogger(logger observability.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the forwarder.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// WithFlushInterval sets the flush interval for streaming responses.
func WithFlushInterval(d time.Duration) Option {
	return func(f *Forwarder) {
		f.flushInterval = d
	}
}

// NewForwarder creates a forwarder serving lookups from the given
// table handle.
func NewForwarder(handle *router.Handle, opts ...Option) *Forwarder {
	f := &Forwarder{
		handle:        handle,
		logger:        observability.NopLogger(),
		flushInterval: -1, // immediate flush, bodies are streams
		transports:    make(map[string]*http.Transport),
		breakers:      make(map[string]*gobreaker.CircuitBreaker),
		limiters:      make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Reset drops cached per-route transports, breakers and limiters.
// Callers invoke it after swapping the routing table so stale route
// definitions do not leak into new traffic.
func (f *Forwarder) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tr := range f.transports {
		tr.CloseIdleConnections()
	}
	f.transports = make(map[string]*http.Transport)
	f.breakers = make(map[string]*gobreaker.CircuitBreaker)
	f.limiters = make(map[string]*rate.Limiter)
}

// ServeHTTP implements http.Handler.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := f.handle.Lookup(r.URL.Path)
	if !ok {
		f.handleNotFound(w, r)
		return
	}
	route := m.Route

	ctx := r.Context()
	util.SetRoute(ctx, route.ID)
	if params := m.ParamMap(); params != nil {
		ctx = util.ContextWithPathParams(ctx, params)
		r = r.WithContext(ctx)
	}

	if lim := f.limiter(route); lim != nil && !lim.Allow() {
		f.logger.WithContext(ctx).Warn("rate limit exceeded",
			observability.String("route", route.ID),
		)
		if f.metrics != nil {
			f.metrics.RecordBackendError(route.ID, "rate_limited")
		}
		util.WriteJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	f.forward(w, r, route, m)
}

// forward drives the backend call for a matched route.
func (f *Forwarder) forward(w http.ResponseWriter, r *http.Request, route *config.RouteEntry, m *router.Match) {
	outPath := BackendPath(route, m, r.URL.Path)

	rp := &httputil.ReverseProxy{
		Director:      f.director(route, outPath),
		Transport:     f.transport(route),
		FlushInterval: f.flushInterval,
		ErrorHandler:  f.errorHandler(route),
	}

	cb := f.breaker(route)
	if cb == nil {
		rp.ServeHTTP(w, r)
		return
	}

	_, err := cb.Execute(func() (interface{}, error) {
		sw := util.NewStatusCapturingResponseWriter(w)
		rp.ServeHTTP(sw, r)
		if sw.StatusCode >= http.StatusBadGateway {
			return nil, &serverError{statusCode: sw.StatusCode}
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Breaker is open: fail fast, no backend dial.
		f.logger.WithContext(r.Context()).Warn("circuit breaker open",
			observability.String("route", route.ID),
		)
		if f.metrics != nil {
			f.metrics.RecordBackendError(route.ID, "circuit_open")
		}
		util.WriteJSONError(w, http.StatusBadGateway, "circuit_open", "backend unavailable")
	}
}

// director rewrites the outbound request: backend scheme/host, the
// composed path, and the Host header policy. The body is left as the
// inbound stream; it is never buffered.
func (f *Forwarder) director(route *config.RouteEntry, outPath string) func(*http.Request) {
	scheme := "http"
	if route.IsHTTPS() {
		scheme = "https"
	}
	return func(req *http.Request) {
		inboundHost := req.Host

		req.URL.Scheme = scheme
		req.URL.Host = route.BackendAddr()
		req.URL.Path = outPath
		req.URL.RawPath = ""

		req.Host = BackendHost(route, inboundHost)

		removeHopHeaders(req.Header)

		if req.TLS != nil {
			req.Header.Set("X-Forwarded-Proto", "https")
		} else {
			req.Header.Set("X-Forwarded-Proto", "http")
		}
		req.Header.Set("X-Forwarded-Host", inboundHost)
	}
}

// errorHandler converts a failed backend call into a response. It only
// runs before response headers have been streamed; mid-stream failures
// abort the client connection instead.
func (f *Forwarder) errorHandler(route *config.RouteEntry) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		out := classifyError(route, err)

		log := f.logger.WithContext(r.Context())
		switch out.status {
		case 0:
			log.Debug("client closed connection before backend completed",
				observability.String("route", route.ID),
				observability.String("path", r.URL.Path),
			)
			return
		case http.StatusGatewayTimeout:
			var te *util.BackendTimeoutError
			phase := ""
			if errors.As(out.err, &te) {
				phase = te.Phase
			}
			log.Error("backend timeout",
				observability.String("route", route.ID),
				observability.String("phase", phase),
				observability.Error(out.err),
			)
			if f.metrics != nil {
				f.metrics.RecordBackendError(route.ID, out.reason)
			}
			util.WriteJSONError(w, out.status, "gateway_timeout", "backend timed out")
		default:
			log.Error("backend connect failed",
				observability.String("route", route.ID),
				observability.String("target", route.BackendAddr()),
				observability.Error(out.err),
			)
			if f.metrics != nil {
				f.metrics.RecordBackendError(route.ID, out.reason)
			}
			util.WriteJSONError(w, out.status, "bad_gateway", "failed to reach backend")
		}
	}
}

// handleNotFound answers an unmatched path. No backend is contacted.
func (f *Forwarder) handleNotFound(w http.ResponseWriter, r *http.Request) {
	err := util.NewRouteNotFoundError(r.Method, r.URL.Path)
	f.logger.WithContext(r.Context()).Debug("route not found",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.Error(err),
	)
	util.WriteJSONError(w, http.StatusNotFound, "not_found", "no matching route")
}

// transport returns the cached transport for a route, building it on
// first use.
func (f *Forwarder) transport(route *config.RouteEntry) *http.Transport {
	f.mu.RLock()
	tr, ok := f.transports[route.ID]
	f.mu.RUnlock()
	if ok {
		return tr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if tr, ok = f.transports[route.ID]; ok {
		return tr
	}
	tr = newTransport(route)
	f.transports[route.ID] = tr
	return tr
}

// breaker returns the route's circuit breaker, or nil when disabled.
func (f *Forwarder) breaker(route *config.RouteEntry) *gobreaker.CircuitBreaker {
	if !route.CircuitBreaker {
		return nil
	}

	f.mu.RLock()
	cb, ok := f.breakers[route.ID]
	f.mu.RUnlock()
	if ok {
		return cb
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok = f.breakers[route.ID]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: route.ID,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 30 * time.Second,
	})
	f.breakers[route.ID] = cb
	return cb
}

// limiter returns the route's rate limiter, or nil when disabled.
func (f *Forwarder) limiter(route *config.RouteEntry) *rate.Limiter {
	if route.RateLimitRPS <= 0 {
		return nil
	}

	f.mu.RLock()
	lim, ok := f.limiters[route.ID]
	f.mu.RUnlock()
	if ok {
		return lim
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok = f.limiters[route.ID]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(route.RateLimitRPS), route.RateLimitBurst)
	f.limiters[route.ID] = lim
	return lim
}
