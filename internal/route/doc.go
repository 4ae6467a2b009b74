// Package route holds the gateway's backend registry: an ordered, immutable
// table of path prefixes mapped to backend base URLs, and the rewriter that
// turns an inbound path into the outbound target URL.
//
// Prefixes always start and end with "/" and no prefix may be a prefix of
// another, so the first match in registration order is also the only match.
package route
