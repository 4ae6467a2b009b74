// Package healthcheck watches the reachability of the configured backend
// services. A Monitor checks each service's base URL through the shared
// outbound pool on a fixed interval, logs transitions and reports them to the
// metrics collector. It only observes: routing never consults it.
package healthcheck
