package route_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxta/edge-gateway/internal/route"
)

var _ = Describe("Rewrite", func() {
	DescribeTable("joins the residual path to the base URL",
		func(fullPath, prefix, base, want string) {
			Expect(route.Rewrite(fullPath, prefix, base)).To(Equal(want))
		},
		Entry("nested path", "/data/users/42", "/data/", "http://svc-data:9000", "http://svc-data:9000/users/42"),
		Entry("empty residual", "/chat/", "/chat/", "http://svc-chat:9100", "http://svc-chat:9100/"),
		Entry("base with trailing slash", "/data/users/42", "/data/", "http://svc-data:9000/", "http://svc-data:9000/users/42"),
		Entry("empty residual, base with trailing slash", "/chat/", "/chat/", "http://svc-chat:9100/", "http://svc-chat:9100/"),
		Entry("base with path", "/data/a", "/data/", "http://svc/api", "http://svc/api/a"),
		Entry("percent-encoded bytes kept", "/data/a%2Fb/c%20d", "/data/", "http://svc", "http://svc/a%2Fb/c%20d"),
		Entry("dot segments kept", "/data/../x/./y", "/data/", "http://svc", "http://svc/../x/./y"),
		Entry("doubled separator kept", "/data//x", "/data/", "http://svc", "http://svc//x"),
		Entry("trailing slash kept", "/data/users/", "/data/", "http://svc", "http://svc/users/"),
	)

	It("should append the whole path when the prefix does not match", func() {
		Expect(route.Rewrite("/other/x", "/data/", "http://svc")).To(Equal("http://svc/other/x"))
	})

	DescribeTable("forwards P/S to base + \"/\" + S for every registered prefix",
		func(prefix, subpath string) {
			base := "http://backend:8080"
			Expect(route.Rewrite(prefix+subpath, prefix, base)).To(Equal(base + "/" + subpath))
		},
		Entry("data, empty", "/data/", ""),
		Entry("data, deep", "/data/", "a/b/c"),
		Entry("chat, file", "/chat/", "upload.png"),
		Entry("multi-segment prefix", "/api/v1/", "items/7"),
	)
})
