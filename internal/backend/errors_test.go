package backend_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxta/edge-gateway/internal/backend"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ = Describe("Errors", func() {
	DescribeTable("Classify",
		func(err error, want backend.Kind) {
			Expect(backend.Classify(err)).To(Equal(want))
		},
		Entry("context deadline", context.DeadlineExceeded, backend.KindTimeout),
		Entry("wrapped context deadline", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, backend.KindTimeout),
		Entry("os deadline", fmt.Errorf("read: %w", os.ErrDeadlineExceeded), backend.KindTimeout),
		Entry("dial timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}, backend.KindTimeout),
		Entry("connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, backend.KindTransport),
		Entry("dns failure", &net.DNSError{Err: "no such host", Name: "svc"}, backend.KindTransport),
		Entry("cancelled", context.Canceled, backend.KindTransport),
		Entry("anything else", errors.New("malformed HTTP response"), backend.KindTransport),
	)

	Describe("Error", func() {
		It("should unwrap to the cause", func() {
			err := &backend.Error{Kind: backend.KindTimeout, Op: backend.OpRoundTrip, URL: "http://x", Err: context.DeadlineExceeded}
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(err.Timeout()).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("round_trip"))
			Expect(err.Error()).To(ContainSubstring("timeout"))
		})

		It("should keep its kind through wrapping", func() {
			err := fmt.Errorf("forward: %w", &backend.Error{Kind: backend.KindTransport, Err: context.DeadlineExceeded})
			Expect(backend.KindOf(err)).To(Equal(backend.KindTransport))
		})
	})

	It("should name kinds", func() {
		Expect(backend.KindTimeout.String()).To(Equal("timeout"))
		Expect(backend.KindTransport.String()).To(Equal("transport"))
	})
})
