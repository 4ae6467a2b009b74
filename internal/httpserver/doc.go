// Package httpserver wraps http.Server with address validation, the gateway's
// inbound timeouts and graceful shutdown.
package httpserver
