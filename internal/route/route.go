package route

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPrefix is returned for prefixes not delimited by "/".
	ErrInvalidPrefix = errors.New("route: prefix must start and end with '/'")

	// ErrPrefixOverlap is returned when one prefix shadows another.
	ErrPrefixOverlap = errors.New("route: overlapping prefixes")

	// ErrUnknownService is returned when a binding names a service that has
	// no configured base URL.
	ErrUnknownService = errors.New("route: unknown service")
)

// Route maps a path prefix to the base URL of one backend service.
type Route struct {
	Prefix  string
	Service string
	BaseURL string
}

// Binding associates a prefix with a logical service name, before the name
// is resolved to a base URL.
type Binding struct {
	Prefix  string
	Service string
}

// Table is the immutable, ordered set of routes. It is safe for concurrent
// use without synchronization.
type Table struct {
	routes []Route
}

// Build resolves every binding against services and returns the table.
// A binding whose service is missing from services is an error.
func Build(bindings []Binding, services map[string]string) (*Table, error) {
	routes := make([]Route, 0, len(bindings))
	for _, b := range bindings {
		base, ok := services[b.Service]
		if !ok {
			return nil, fmt.Errorf("%w: %q (prefix %s)", ErrUnknownService, b.Service, b.Prefix)
		}
		routes = append(routes, Route{Prefix: b.Prefix, Service: b.Service, BaseURL: base})
	}
	return New(routes)
}

// New validates routes and returns a table that matches them in the given
// order.
func New(routes []Route) (*Table, error) {
	t := &Table{routes: make([]Route, 0, len(routes))}
	for _, r := range routes {
		if len(r.Prefix) < 2 || !strings.HasPrefix(r.Prefix, "/") || !strings.HasSuffix(r.Prefix, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPrefix, r.Prefix)
		}
		for _, existing := range t.routes {
			if strings.HasPrefix(r.Prefix, existing.Prefix) || strings.HasPrefix(existing.Prefix, r.Prefix) {
				return nil, fmt.Errorf("%w: %q and %q", ErrPrefixOverlap, existing.Prefix, r.Prefix)
			}
		}
		t.routes = append(t.routes, r)
	}
	return t, nil
}

// Resolve returns the first route whose prefix is a literal prefix of path.
func (t *Table) Resolve(path string) (Route, bool) {
	for _, r := range t.routes {
		if strings.HasPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return Route{}, false
}

// Routes returns a copy of the table in match order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len reports the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}
