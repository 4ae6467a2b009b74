package middleware_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxta/edge-gateway/internal/middleware"
)

var _ = Describe("CORS", func() {
	var (
		reached bool
		h       http.Handler
	)

	BeforeEach(func() {
		reached = false
		h = middleware.CORS(middleware.DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusTeapot)
		}))
	})

	It("answers preflight requests without calling the next handler", func() {
		req := httptest.NewRequest(http.MethodOptions, "/data/users", nil)
		req.Header.Set("Origin", "https://2xedbot.site")
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "content-type, x-token")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(reached).To(BeFalse())
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://2xedbot.site"))
		Expect(w.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		Expect(w.Header().Get("Access-Control-Allow-Methods")).To(Equal("POST"))
		Expect(w.Header().Get("Access-Control-Allow-Headers")).To(Equal("Content-Type, X-Token"))
		Expect(w.Header().Get("Access-Control-Max-Age")).To(Equal("3600"))
	})

	It("decorates simple requests from allowed origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
		req.Header.Set("Origin", "https://app.example")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(reached).To(BeTrue())
		Expect(w.Code).To(Equal(http.StatusTeapot))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example"))
		Expect(w.Header().Get("Access-Control-Expose-Headers")).To(Equal("Set-Cookie"))
		Expect(w.Header().Values("Vary")).To(ContainElement("Origin"))
	})

	It("leaves requests without an Origin alone", func() {
		req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(reached).To(BeTrue())
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("passes plain OPTIONS requests through", func() {
		req := httptest.NewRequest(http.MethodOptions, "/data/users", nil)
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		Expect(reached).To(BeTrue())
	})

	Context("when the next handler sets its own CORS headers", func() {
		BeforeEach(func() {
			h = middleware.CORS(middleware.DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				header := w.Header()
				header.Del("Vary")
				header.Del("Access-Control-Allow-Origin")
				header.Set("Access-Control-Allow-Origin", "*")
				header.Set("Access-Control-Allow-Methods", "PATCH")
				header.Add("Vary", "Accept-Encoding")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			}))
		})

		It("keeps the gateway's policy", func() {
			req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
			req.Header.Set("Origin", "https://2xedbot.site")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(reached).To(BeTrue())
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://2xedbot.site"))
			Expect(w.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
			Expect(w.Header().Get("Access-Control-Expose-Headers")).To(Equal("Set-Cookie"))
			Expect(w.Header().Get("Access-Control-Allow-Methods")).To(BeEmpty())
			Expect(w.Body.String()).To(Equal("ok"))
		})

		It("merges Vary instead of replacing it", func() {
			req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
			req.Header.Set("Origin", "https://2xedbot.site")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Header().Values("Vary")).To(ConsistOf("Accept-Encoding", "Origin"))
		})

		It("drops them for requests the gateway does not decorate", func() {
			req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
			Expect(w.Header().Get("Access-Control-Allow-Methods")).To(BeEmpty())
		})

		It("does not repeat a Vary token the handler already sent", func() {
			h = middleware.CORS(middleware.DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Del("Vary")
				w.Header().Set("Vary", "origin, Accept-Encoding")
				_, _ = w.Write([]byte("ok"))
			}))
			req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
			req.Header.Set("Origin", "https://2xedbot.site")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Header().Values("Vary")).To(Equal([]string{"origin, Accept-Encoding"}))
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://2xedbot.site"))
		})
	})

	Context("with an explicit origin list", func() {
		BeforeEach(func() {
			cfg := middleware.DefaultCORSConfig()
			cfg.AllowOrigins = []string{"https://2xedbot.site"}
			cfg.AllowHeaders = []string{"Content-Type", "Authorization"}
			h = middleware.CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))
		})

		It("answers preflights from other origins without granting access", func() {
			req := httptest.NewRequest(http.MethodOptions, "/data/users", nil)
			req.Header.Set("Origin", "https://evil.example")
			req.Header.Set("Access-Control-Request-Method", "GET")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(reached).To(BeFalse())
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
			Expect(w.Header().Get("Access-Control-Allow-Methods")).To(BeEmpty())
		})

		It("matches origins case-insensitively", func() {
			req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
			req.Header.Set("Origin", "https://2XEDBOT.site")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://2XEDBOT.site"))
		})

		It("grants only the configured headers on preflight", func() {
			req := httptest.NewRequest(http.MethodOptions, "/data/users", nil)
			req.Header.Set("Origin", "https://2xedbot.site")
			req.Header.Set("Access-Control-Request-Method", "GET")
			req.Header.Set("Access-Control-Request-Headers", "authorization")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Header().Get("Access-Control-Allow-Headers")).To(Equal("Authorization"))

			req.Header.Set("Access-Control-Request-Headers", "x-token")
			w = httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
			Expect(w.Header().Get("Access-Control-Allow-Headers")).To(BeEmpty())
		})

		It("does not decorate responses for other origins", func() {
			req := httptest.NewRequest(http.MethodGet, "/data/users", nil)
			req.Header.Set("Origin", "https://evil.example")
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			Expect(reached).To(BeTrue())
			Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})
	})
})
