package handler

import (
	"net/http"

	"github.com/voxta/edge-gateway/internal/backend"
)

// WriteFailure answers for a failed outbound call: 504 "Gateway Timeout" when
// the call ran out of time, 502 "Bad Gateway" for every other failure. It
// returns the status written.
func WriteFailure(w http.ResponseWriter, err error) int {
	status := http.StatusBadGateway
	if backend.KindOf(err) == backend.KindTimeout {
		status = http.StatusGatewayTimeout
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(http.StatusText(status)))
	return status
}
