package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind tags an outbound failure.
type Kind int

const (
	// KindTransport covers refused connections, DNS failures, protocol
	// errors and anything else that is not a deadline.
	KindTransport Kind = iota
	// KindTimeout covers the connect deadline and the overall deadline.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	default:
		return "transport"
	}
}

// Operations reported in Error.Op.
const (
	OpAcquire   = "acquire"
	OpBuild     = "build"
	OpRoundTrip = "round_trip"
	OpReadBody  = "read_body"
)

// Error is returned by Pool.Execute for every failed call.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func newError(op, url string, err error) *Error {
	return &Error{Kind: Classify(err), Op: op, URL: url, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s %s: %s: %v", e.Op, e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call ran out of time.
func (e *Error) Timeout() bool {
	return e.Kind == KindTimeout
}

// Classify decides the Kind of a raw transport error.
func Classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindTransport
}

// KindOf returns the Kind carried by err, classifying it when err is not an
// *Error.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return Classify(err)
}
