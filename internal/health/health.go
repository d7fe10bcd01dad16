// Package health serves the liveness and readiness endpoints exposed
// on the admin listener next to the Prometheus metrics.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/router"
)

// Status is the reported probe status.
type Status string

const (
	// StatusUp indicates the gateway is serving.
	StatusUp Status = "up"
	// StatusDown indicates the gateway is not serving.
	StatusDown Status = "down"
)

// Source reports the live state of the gateway.
type Source interface {
	IsRunning() bool
	Uptime() time.Duration
}

// Response is the JSON body of both probes.
type Response struct {
	Status    Status          `json:"status"`
	Version   string          `json:"version,omitempty"`
	Uptime    config.Duration `json:"uptime"`
	Routes    int             `json:"routes"`
	Timestamp time.Time       `json:"timestamp"`
}

// Handler answers liveness and readiness probes against the gateway
// state and the active routing table.
type Handler struct {
	version string
	source  Source
	handle  *router.Handle
}

// NewHandler creates a probe handler.
func NewHandler(version string, source Source, handle *router.Handle) *Handler {
	return &Handler{version: version, source: source, handle: handle}
}

// Register mounts the probe endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Live)
	mux.HandleFunc("/readyz", h.Ready)
}

// Live answers the liveness probe. It reports up as long as the
// process can serve the endpoint at all.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	h.write(w, http.StatusOK, StatusUp)
}

// Ready answers the readiness probe: up only while the gateway is
// running and a routing table snapshot is published.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.source != nil && h.source.IsRunning() && h.table() != nil {
		h.write(w, http.StatusOK, StatusUp)
		return
	}
	h.write(w, http.StatusServiceUnavailable, StatusDown)
}

func (h *Handler) table() *router.Table {
	if h.handle == nil {
		return nil
	}
	return h.handle.Load()
}

func (h *Handler) write(w http.ResponseWriter, code int, status Status) {
	resp := Response{
		Status:    status,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	}
	if h.source != nil {
		resp.Uptime = config.Duration(h.source.Uptime())
	}
	if table := h.table(); table != nil {
		resp.Routes = table.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
