// Package middleware holds the net/http middleware wrapped around every
// gateway route: CORS, request ids and the access log.
package middleware
