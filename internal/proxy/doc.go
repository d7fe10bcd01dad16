// Package proxy implements the forwarding pipeline: route lookup,
// backend request construction (path composition, host header policy,
// hop-by-hop header removal), per-route transports with
// connect/read/write timeout bounds, streaming of request and
// response bodies, and classification of backend failures into Bad
// Gateway and Gateway Timeout outcomes.
package proxy
