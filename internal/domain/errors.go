package domain

import "errors"

var (
	// ErrMalformedToken rejects a presented token whose shape is wrong,
	// before any store access.
	ErrMalformedToken = errors.New("malformed token")

	// ErrLinkUnusable is the collapsed outcome for not-found, expired and
	// already-used tokens. Callers must not be able to tell which.
	ErrLinkUnusable = errors.New("link expired or already used")

	// ErrRateLimited is absorbed into a success-shaped response at the
	// request-access boundary.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidEmail rejects input locally; also absorbed at the
	// request-access boundary.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrClientNotFound aborts booking redemption when the collaborator
	// lookup fails; no partial session is created.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidBookingType rejects unrecognized booking types on the
	// admin create-token surface.
	ErrInvalidBookingType = errors.New("invalid booking type")

	// ErrMissingFields rejects an admin create-token request lacking
	// required fields.
	ErrMissingFields = errors.New("missing required fields")
)
