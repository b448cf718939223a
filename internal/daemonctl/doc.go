// Package daemonctl drives a running opine daemon from other
// processes: an HTTP client for the control API, pid-file process
// probes, and status aggregation with offline store fallbacks.
package daemonctl
