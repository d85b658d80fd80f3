package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
)

// SessionRepo persists the sessions minted when a token is consumed.
// Validation filters on expiry rather than deleting; expired rows are left
// for the maintenance sweep. Callers must shape-check identifiers before
// they get here.
type SessionRepo interface {
	CreatePricingSession(ctx context.Context, email string, expiresAt time.Time) (uuid.UUID, error)
	// ValidatePricingSession returns nil when the session is unknown or expired.
	ValidatePricingSession(ctx context.Context, id uuid.UUID) (*domain.PricingSession, error)
	// DeletePricingSession is idempotent; deleting a nonexistent id is not an error.
	DeletePricingSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredPricingSessions(ctx context.Context, cutoff time.Time) (int64, error)

	CreateBookingSession(ctx context.Context, clientID string, bookingType domain.BookingType, clientEmail string, expiresAt time.Time) (uuid.UUID, error)
	ValidateBookingSession(ctx context.Context, id uuid.UUID) (*domain.BookingSession, error)
	DeleteBookingSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredBookingSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionRepoImpl struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepoImpl { return &SessionRepoImpl{pool: pool} }

func (r *SessionRepoImpl) CreatePricingSession(ctx context.Context, email string, expiresAt time.Time) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
INSERT INTO pricing_sessions (email, expires_at)
VALUES ($1, $2)
RETURNING id
`, email, expiresAt).Scan(&id)
	return id, err
}

func (r *SessionRepoImpl) ValidatePricingSession(ctx context.Context, id uuid.UUID) (*domain.PricingSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.PricingSession
	err := r.pool.QueryRow(ctx, `
SELECT id, email, expires_at, created_at
FROM pricing_sessions
WHERE id = $1
  AND expires_at > now()
`, id).Scan(&s.ID, &s.Email, &s.ExpiresAt, &s.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepoImpl) DeletePricingSession(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `DELETE FROM pricing_sessions WHERE id = $1`, id)
	return err
}

func (r *SessionRepoImpl) DeleteExpiredPricingSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM pricing_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepoImpl) CreateBookingSession(ctx context.Context, clientID string, bookingType domain.BookingType, clientEmail string, expiresAt time.Time) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
INSERT INTO booking_sessions (client_id, booking_type, client_email, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`, clientID, string(bookingType), clientEmail, expiresAt).Scan(&id)
	return id, err
}

func (r *SessionRepoImpl) ValidateBookingSession(ctx context.Context, id uuid.UUID) (*domain.BookingSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.BookingSession
	err := r.pool.QueryRow(ctx, `
SELECT id, client_id, booking_type, client_email, expires_at, created_at
FROM booking_sessions
WHERE id = $1
  AND expires_at > now()
`, id).Scan(&s.ID, &s.ClientID, &s.BookingType, &s.ClientEmail, &s.ExpiresAt, &s.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepoImpl) DeleteBookingSession(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, `DELETE FROM booking_sessions WHERE id = $1`, id)
	return err
}

func (r *SessionRepoImpl) DeleteExpiredBookingSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM booking_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
