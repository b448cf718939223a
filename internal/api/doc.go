// Package api defines wire-format types, converters, and the service
// layer shared by the HTTP API and the CLI. It translates internal
// survey models into transport-friendly DTOs that dashboards and
// scripts can render without coupling to internal types.
//
// # Key Types
//
// ResponseItem: transport representation of a survey response with its
// answers, review lease, and verdict fields.
//
// ClaimResult/RenewResult/AckResult: outcomes of the review-assignment
// operations; an empty pool is available:false, not an error.
//
// ScanReport/DuplicateGroupItem: a duplicate scan rendered for
// consumers, with per-duplicate millisecond offsets from the group
// original.
//
// RestoreResult/PurgeResult: bulk-maintenance outcomes as
// matched/updated and requested/deleted tallies.
//
// StatusReport/HealthReport: daemon and store state summaries.
//
// # Services
//
// ReviewService wraps the lease manager; DedupeService wraps the
// duplicate scanner and republishes exclusion sets; MaintenanceService
// runs batched restores and purges; QueueService serves read-only
// stats and health.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers.
// Statuses cross the wire in their stored form (mixed casing);
// release outcomes are accepted lowercase and parsed case-insensitively.
// Timestamps use RFC3339 with milliseconds.
//
// Expected conditions travel as typed results, not errors: an empty
// review pool and a lost lease are routine, so ClaimResult carries
// available:false and HTTPStatus maps lease.ErrOwnershipLost to 409
// instead of treating either as a fault.
package api
