package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns the policy the gateway's browser clients rely on.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:     []string{"*", "https://2xedbot.site"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"set-cookie"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
}

// allowOrigin matches origins case-insensitively. A "*" entry admits every
// origin; the origin is still echoed back since credentials are allowed.
func allowOrigin(origins []string) func(*http.Request, string) bool {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(origin)] = true
	}

	return func(_ *http.Request, origin string) bool {
		if origin == "" {
			return false
		}
		return allowAll || allowed[strings.ToLower(origin)]
	}
}

// CORS answers preflight requests itself and adds CORS headers to responses
// for allowed origins. Plain OPTIONS requests pass through.
//
// The gateway owns the CORS policy: Access-Control-* headers written by the
// next handler (a relayed backend response, typically) are replaced with the
// gateway's, and its Vary tokens are merged with the gateway's.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg.AllowOrigins),
		AllowedMethods:   cfg.AllowMethods,
		AllowedHeaders:   cfg.AllowHeaders,
		ExposedHeaders:   cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(next http.Handler) http.Handler {
		return c.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(newCORSWriter(w), r)
		}))
	}
}

// corsWriter restores the headers the CORS handler set before the first
// byte of the response goes out.
type corsWriter struct {
	http.ResponseWriter
	policy      http.Header
	vary        []string
	wroteHeader bool
}

func newCORSWriter(w http.ResponseWriter) *corsWriter {
	cw := &corsWriter{ResponseWriter: w, policy: http.Header{}}
	for key, values := range w.Header() {
		if isCORSHeader(key) {
			cw.policy[key] = append([]string(nil), values...)
		}
	}
	cw.vary = varyTokens(w.Header().Values("Vary"))
	return cw
}

func isCORSHeader(key string) bool {
	return strings.HasPrefix(http.CanonicalHeaderKey(key), "Access-Control-")
}

func varyTokens(values []string) []string {
	var tokens []string
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	return tokens
}

func (cw *corsWriter) enforce() {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true

	header := cw.ResponseWriter.Header()
	for key := range header {
		if isCORSHeader(key) {
			delete(header, key)
		}
	}
	for key, values := range cw.policy {
		header[key] = values
	}

	present := make(map[string]bool)
	for _, token := range varyTokens(header.Values("Vary")) {
		present[strings.ToLower(token)] = true
	}
	for _, token := range cw.vary {
		if !present[strings.ToLower(token)] {
			present[strings.ToLower(token)] = true
			header.Add("Vary", token)
		}
	}
}

func (cw *corsWriter) WriteHeader(statusCode int) {
	cw.enforce()
	cw.ResponseWriter.WriteHeader(statusCode)
}

func (cw *corsWriter) Write(b []byte) (int, error) {
	cw.enforce()
	return cw.ResponseWriter.Write(b)
}

func (cw *corsWriter) Flush() {
	cw.enforce()
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *corsWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
