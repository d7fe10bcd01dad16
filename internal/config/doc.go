// Package config provides route and server configuration for the
// gateway: the YAML route file shape, per-route defaults and
// validation, environment-sourced server settings, and a file watcher
// that drives hot reload of the routing table.
package config
