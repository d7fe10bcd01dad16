// Package util provides shared utility types for the gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, BackendConnectError). Each
//     type implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("timeout")
	ErrCircuitOpen    = errors.New("circuit breaker open")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrBackendUnavail = errors.New("backend unavailable")
	ErrConfigInvalid  = errors.New("invalid configuration")
)

// ConfigError represents a configuration error that is fatal at build
// time. A ConfigError must prevent the process from serving traffic.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// RouteNotFoundError indicates that no configured route matches a
// request path. It is recovered locally as a Not Found response; no
// backend is ever contacted.
type RouteNotFoundError struct {
	Method string
	Path   string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Method: method, Path: path}
}

// BackendConnectError indicates that the backend connection could not
// be established (refused, unreachable, DNS failure). Recovered as a
// Bad Gateway response.
type BackendConnectError struct {
	Route  string
	Target string
	Cause  error
}

// Error implements the error interface.
func (e *BackendConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend connect failed: route=%s target=%s: %v", e.Route, e.Target, e.Cause)
	}
	return fmt.Sprintf("backend connect failed: route=%s target=%s", e.Route, e.Target)
}

// Unwrap returns the underlying error.
func (e *BackendConnectError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BackendConnectError) Is(target error) bool {
	if target == ErrBackendUnavail {
		return true
	}
	_, ok := target.(*BackendConnectError)
	return ok || errors.Is(e.Cause, target)
}

// NewBackendConnectError creates a new BackendConnectError.
func NewBackendConnectError(route, target string, cause error) *BackendConnectError {
	return &BackendConnectError{Route: route, Target: target, Cause: cause}
}

// Timeout phases for BackendTimeoutError.
const (
	PhaseConnect = "connect"
	PhaseRead    = "read"
	PhaseWrite   = "write"
)

// BackendTimeoutError indicates that one phase of the backend call
// (connect, read, write) exceeded its configured bound. Recovered as a
// Gateway Timeout response.
type BackendTimeoutError struct {
	Route   string
	Phase   string
	Timeout time.Duration
	Cause   error
}

// Error implements the error interface.
func (e *BackendTimeoutError) Error() string {
	return fmt.Sprintf("backend %s timeout after %s: route=%s", e.Phase, e.Timeout, e.Route)
}

// Unwrap returns the underlying error.
func (e *BackendTimeoutError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BackendTimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*BackendTimeoutError)
	return ok || errors.Is(e.Cause, target)
}

// Timeout implements net.Error-style timeout reporting.
func (e *BackendTimeoutError) IsTimeout() bool {
	return true
}

// NewBackendTimeoutError creates a new BackendTimeoutError.
func NewBackendTimeoutError(route, phase string, timeout time.Duration, cause error) *BackendTimeoutError {
	return &BackendTimeoutError{Route: route, Phase: phase, Timeout: timeout, Cause: cause}
}

// TLSConfigError indicates that the inbound TLS server identity could
// not be loaded. Fatal at startup; per-connection handshake failures
// are connection-scoped and never surface as this type.
type TLSConfigError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TLSConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tls config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("tls config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *TLSConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *TLSConfigError) Is(target error) bool {
	_, ok := target.(*TLSConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewTLSConfigError creates a new TLSConfigError.
func NewTLSConfigError(message string, cause error) *TLSConfigError {
	return &TLSConfigError{Message: message, Cause: cause}
}
