package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/nexhop/gateway/internal/config"
	"github.com/nexhop/gateway/internal/util"
)

// serverError marks a response the circuit breaker counts as a
// backend failure.
type serverError struct {
	statusCode int
}

// Error implements the error interface.
func (e *serverError) Error() string {
	return fmt.Sprintf("backend failure: status %d", e.statusCode)
}

// outcome is a classified backend call failure.
type outcome struct {
	// status is the HTTP status to answer with, or 0 when the client
	// connection should simply be abandoned (client already gone).
	status int
	reason string
	err    error
}

// classifyError maps a backend call error to the response outcome:
// connect failures to Bad Gateway, timeouts in any phase to Gateway
// Timeout, and client cancellation to a silent abort.
func classifyError(route *config.RouteEntry, err error) outcome {
	if errors.Is(err, context.Canceled) {
		// Client leg closed; cancellation has already propagated to
		// the backend leg.
		return outcome{status: 0, reason: "client_closed", err: err}
	}

	phase, timedOut := timeoutPhase(err)
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		if phase == "" {
			phase = util.PhaseRead
		}
		bound := route.ReadTimeout()
		switch phase {
		case util.PhaseConnect:
			bound = route.ConnectTimeout()
		case util.PhaseWrite:
			bound = route.WriteTimeout()
		}
		return outcome{
			status: http.StatusGatewayTimeout,
			reason: "timeout_" + phase,
			err:    util.NewBackendTimeoutError(route.ID, phase, bound, err),
		}
	}

	return outcome{
		status: http.StatusBadGateway,
		reason: "connect_failed",
		err:    util.NewBackendConnectError(route.ID, route.BackendAddr(), err),
	}
}

// timeoutPhase inspects the error chain for the phase in which a
// timeout occurred. A dial OpError maps to the connect phase; read and
// write OpErrors (from per-chunk deadlines) map accordingly. A bare
// transport timeout with no OpError is the wait for response headers,
// which counts as the read phase.
func timeoutPhase(err error) (phase string, timedOut bool) {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if !opErr.Timeout() && !errors.Is(opErr.Err, os.ErrDeadlineExceeded) {
			return "", false
		}
		switch opErr.Op {
		case "dial":
			return util.PhaseConnect, true
		case "write":
			return util.PhaseWrite, true
		default:
			return util.PhaseRead, true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "", true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) {
		return util.PhaseRead, true
	}

	return "", false
}
