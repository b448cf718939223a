// Package daemon coordinates the long-running Opine process and its
// integration points.
//
// It wires configuration, the response store, the lease manager, the
// duplicate scanner, and the exclusion cache into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon owns the
// HTTP API surface, the periodic expired-lease sweep, and the health
// heartbeat log, and it emits push notifications for scans, maintenance
// actions, and errors.
//
// Keep orchestration logic here: review and duplicate-detection semantics
// live in their respective packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
