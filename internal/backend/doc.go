// Package backend implements the gateway's outbound side: a shared HTTP
// connection pool with bounded concurrency, keep-alive reuse and separate
// connect and overall deadlines.
//
// Every failed call returns an *Error tagged with exactly one Kind, timeout
// or transport, so callers can translate failures without inspecting
// transport internals.
//
// Usage:
//
//	provider := backend.NewProvider(backend.DefaultOptions())
//	defer provider.Close()
//
//	res, err := provider.Execute(ctx, backend.Call{
//		Method: http.MethodGet,
//		URL:    "http://svc-data:9000/users/42",
//	})
//	if backend.KindOf(err) == backend.KindTimeout {
//		// ...
//	}
package backend
