package healthcheck_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxta/edge-gateway/internal/backend"
	"github.com/voxta/edge-gateway/internal/healthcheck"
	"github.com/voxta/edge-gateway/internal/metrics"
)

var _ = Describe("Monitor", func() {
	var (
		log      *slog.Logger
		pool     *backend.Pool
		upSrv    *httptest.Server
		deadURL  string
		checks   atomic.Int32
		services map[string]string
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		checks.Store(0)

		upSrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			checks.Add(1)
			// any answer counts, even an error status
			w.WriteHeader(http.StatusNotFound)
		}))

		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL = dead.URL
		dead.Close()

		opts := backend.DefaultOptions()
		opts.Timeout = time.Second
		pool = backend.NewPool(opts)

		services = map[string]string{
			"MICROSERVICES_DATA": upSrv.URL,
			"MICROSERVICES_CHAT": deadURL,
		}
	})

	AfterEach(func() {
		pool.Close()
		upSrv.Close()
	})

	It("reports services down before the first check", func() {
		m := healthcheck.NewMonitor(log, pool, services, time.Second, nil)

		Expect(m.Snapshot()).To(Equal(map[string]bool{
			"MICROSERVICES_DATA": false,
			"MICROSERVICES_CHAT": false,
		}))
	})

	It("marks reachable services up and unreachable ones down", func() {
		m := healthcheck.NewMonitor(log, pool, services, time.Second, nil)

		m.CheckAll(context.Background())

		Expect(m.IsHealthy("MICROSERVICES_DATA")).To(BeTrue())
		Expect(m.IsHealthy("MICROSERVICES_CHAT")).To(BeFalse())
		Expect(checks.Load()).To(BeEquivalentTo(1))
	})

	It("does not share its map with callers", func() {
		m := healthcheck.NewMonitor(log, pool, services, time.Second, nil)
		m.CheckAll(context.Background())

		snapshot := m.Snapshot()
		snapshot["MICROSERVICES_DATA"] = false

		Expect(m.IsHealthy("MICROSERVICES_DATA")).To(BeTrue())
	})

	It("checks on every tick until cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		m := healthcheck.NewMonitor(log, pool, map[string]string{"MICROSERVICES_DATA": upSrv.URL}, 50*time.Millisecond, nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			m.Run(ctx)
		}()

		Eventually(checks.Load).Should(BeNumerically(">=", 3))
		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("returns immediately when disabled", func() {
		m := healthcheck.NewMonitor(log, pool, services, 0, nil)

		done := make(chan struct{})
		go func() {
			defer close(done)
			m.Run(context.Background())
		}()

		Eventually(done).Should(BeClosed())
		Expect(checks.Load()).To(BeZero())
	})

	It("feeds the backend gauge", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		collector := metrics.NewCollector(8, log)
		collector.Start(ctx)

		m := healthcheck.NewMonitor(log, pool, services, time.Second, collector)
		m.CheckAll(ctx)

		scrape := func() string {
			w := httptest.NewRecorder()
			collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			return w.Body.String()
		}

		Eventually(scrape).Should(And(
			ContainSubstring(`gateway_backend_up{service="MICROSERVICES_DATA"} 1`),
			ContainSubstring(`gateway_backend_up{service="MICROSERVICES_CHAT"} 0`),
		))
		Expect(strings.Count(scrape(), "gateway_backend_up{")).To(Equal(2))
	})
})
