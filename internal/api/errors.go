package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"opine/internal/lease"
)

// ErrValidation marks requests rejected before touching the store.
var ErrValidation = errors.New("invalid request")

// Wire error codes.
const (
	CodeOwnershipLost = "OwnershipLost"
	CodeNotFound      = "NotFound"
	CodeInvalid       = "InvalidRequest"
	CodeInternal      = "Internal"
)

// ErrorPayload is the body of a failed request.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// invalid tags a validation failure with ErrValidation so transports
// map it to a 4xx instead of a fault.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// HTTPStatus maps a service error to its transport status code.
// Expected contention outcomes are conflicts, not faults; anything
// unrecognized is treated as a store or internal failure.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, lease.ErrOwnershipLost):
		return http.StatusConflict
	case errors.Is(err, lease.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PayloadForError renders the wire body for a failed request. Lost
// leases get a fixed actionable message; validation failures echo the
// reason; internal faults stay opaque so store details never leak to
// clients.
func PayloadForError(err error) ErrorPayload {
	switch {
	case errors.Is(err, lease.ErrOwnershipLost):
		return ErrorPayload{Error: CodeOwnershipLost, Message: "assignment expired, request a new item"}
	case errors.Is(err, lease.ErrNotFound):
		return ErrorPayload{Error: CodeNotFound, Message: "response not found"}
	case errors.Is(err, ErrValidation):
		return ErrorPayload{Error: CodeInvalid, Message: validationMessage(err)}
	default:
		return ErrorPayload{Error: CodeInternal, Message: "internal error"}
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, ErrValidation.Error()+": "); ok {
		return rest
	}
	return msg
}
