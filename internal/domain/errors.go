package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing origin, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidState is returned when a status transition is not allowed from
// the entity's current status, e.g. completing a canceled travel.
// Handlers should map this to HTTP 409 Conflict.
var ErrInvalidState = errors.New("invalid state")

// ErrUnauthorized is returned when the acting user may not perform the
// operation, e.g. a passenger trying to cancel someone else's travel.
// Handlers should map this to HTTP 403 Forbidden.
var ErrUnauthorized = errors.New("not authorized")

// ErrInsufficientFunds is returned when the available wallet balance does not
// cover the price of the requested booking(s).
// Handlers should map this to HTTP 402 Payment Required.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrDuplicate is returned when a booking or rating already exists for the
// same (user, travel) pair.
// Handlers should map this to HTTP 409 Conflict.
var ErrDuplicate = errors.New("duplicate")
