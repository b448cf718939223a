// Command opine is the operator CLI for the survey quality-control
// service: it runs and stops the daemon, claims and resolves review
// assignments, scans and purges duplicates, restores cohorts, and
// tails daemon logs.
package main
