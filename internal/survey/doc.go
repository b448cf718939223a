// Package survey defines the response domain model shared by the review
// queue, the duplicate detector, and the storage backends.
//
// A Response is the unit of review work: one interviewer's submission
// for one survey, carrying its answer payload, timing, lifecycle status,
// queue-filtering attributes, and the embedded review lease. Status
// strings preserve the exact casing written by the collection clients;
// treat the constants in this package as the single source of truth and
// go through ParseStatus for anything read from the outside.
package survey
