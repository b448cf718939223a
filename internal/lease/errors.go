package lease

import "errors"

var (
	// ErrNoAvailableWork means the claim bound was exhausted without
	// winning a response: the pool is empty, fully leased, or fully
	// excluded. Callers treat it as "come back later", not a failure.
	ErrNoAvailableWork = errors.New("no reviewable work available")

	// ErrOwnershipLost means a renew, release, or skip found the caller
	// no longer holding the lease: it expired and someone else claimed
	// the response, or it was released twice. Any verdict the caller
	// meant to record must be abandoned.
	ErrOwnershipLost = errors.New("review lease lost")

	// ErrNotFound means the response id does not exist at all.
	ErrNotFound = errors.New("response not found")
)
