// Package respstore defines the persistence contract for survey
// responses and selects the configured backend.
//
// Two backends implement the contract: a single-file SQLite store for
// field laptops and small deployments, and a PostgreSQL store for
// shared installations. Both expose the same atomic lease operations;
// callers never see which backend they talk to.
//
// The conditional updates (Claim, Renew, Release, Skip) return a
// boolean instead of an error when the guard fails: losing a race for
// a response is an expected outcome the caller is built to handle, not
// a fault.
package respstore
