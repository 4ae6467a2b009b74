// Package header strips the headers a proxy must not relay verbatim. Request
// headers lose Host and Content-Length, which the outbound client recomputes;
// response headers lose the framing headers Content-Length, Transfer-Encoding
// and Connection. Everything else, cookies included, is copied unchanged.
package header

import "net/http"

// isRequestDropped reports whether a request header is recomputed by the
// outbound client. The name must already be canonicalized with
// http.CanonicalHeaderKey().
func isRequestDropped(name string) bool {
	switch name {
	case "Host",
		"Content-Length":
		return true
	default:
		return false
	}
}

// isResponseDropped reports whether a response header describes framing of
// the backend connection. The name must already be canonicalized.
func isResponseDropped(name string) bool {
	switch name {
	case "Content-Length",
		"Transfer-Encoding",
		"Connection":
		return true
	default:
		return false
	}
}

// FilterRequest returns a copy of h without the headers the outbound client
// sets itself.
func FilterRequest(h http.Header) http.Header {
	return filter(h, isRequestDropped)
}

// FilterResponse returns a copy of h without connection framing headers.
func FilterResponse(h http.Header) http.Header {
	return filter(h, isResponseDropped)
}

func filter(h http.Header, drop func(string) bool) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if drop(http.CanonicalHeaderKey(name)) {
			continue
		}
		cc := make([]string, len(values))
		copy(cc, values)
		out[name] = cc
	}
	return out
}
