package domain

import (
	"time"

	"github.com/google/uuid"
)

// MagicLink is a single-use pricing access token. Only the hash of the
// emailed secret is stored; the row is usable iff UsedAt is nil and
// ExpiresAt is in the future.
type MagicLink struct {
	ID        uuid.UUID
	Email     string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// BookingToken is the scoped flavor of a magic link: it grants a named
// client access to schedule one booking type.
type BookingToken struct {
	ID          uuid.UUID
	ClientID    string
	BookingType BookingType
	TokenHash   string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedBy   string
	CreatedAt   time.Time
}

// PricingSession is minted when a magic link is consumed. The ID doubles as
// the cookie value. Sessions are never extended by use.
type PricingSession struct {
	ID        uuid.UUID
	Email     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type BookingSession struct {
	ID          uuid.UUID
	ClientID    string
	BookingType BookingType
	ClientEmail string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Client is the external collaborator record a booking token points at.
type Client struct {
	ID           string
	Name         string
	ContactEmail string
	Company      string
}

// ConsumeStatus classifies the outcome of an atomic token consumption.
// Only ConsumeOK grants access; the miss variants exist for logging and
// events and are collapsed into one user-visible outcome at the boundary.
type ConsumeStatus int

const (
	ConsumeOK ConsumeStatus = iota
	ConsumeNotFound
	ConsumeExpired
	ConsumeUsed
)

func (s ConsumeStatus) String() string {
	switch s {
	case ConsumeOK:
		return "ok"
	case ConsumeNotFound:
		return "not_found"
	case ConsumeExpired:
		return "expired"
	case ConsumeUsed:
		return "used"
	default:
		return "unknown"
	}
}
