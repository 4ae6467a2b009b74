// Package handler implements the gateway's HTTP handlers: the Dispatcher that
// forwards prefixed requests to their backend, the failure translator that
// turns outbound errors into 502/504 responses, and the small JSON endpoints
// serving configuration entries and backend status.
package handler
