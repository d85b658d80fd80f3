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

// LinkRepo defines operations on issued access tokens, both pricing magic
// links and scoped booking tokens. Consumption is a single conditional
// UPDATE; the check-then-act window never exists at the application level.
type LinkRepo interface {
	CreateMagicLink(ctx context.Context, email, tokenHash string, expiresAt time.Time) (uuid.UUID, error)
	// ConsumeMagicLink atomically marks a link used and returns it. On a
	// miss the returned status classifies the reason best-effort, for
	// logging only.
	ConsumeMagicLink(ctx context.Context, tokenHash string) (*domain.MagicLink, domain.ConsumeStatus, error)
	// FindActiveMagicLink is a read-only existence check. Anything that
	// grants access must go through ConsumeMagicLink instead.
	FindActiveMagicLink(ctx context.Context, tokenHash string) (*domain.MagicLink, error)
	CountRecentMagicLinks(ctx context.Context, email string, since time.Time) (int, error)
	DeleteExpiredMagicLinks(ctx context.Context, cutoff time.Time) (int64, error)

	CreateBookingToken(ctx context.Context, clientID string, bookingType domain.BookingType, tokenHash, createdBy string, expiresAt time.Time) (uuid.UUID, error)
	ConsumeBookingToken(ctx context.Context, tokenHash string) (*domain.BookingToken, domain.ConsumeStatus, error)
	DeleteExpiredBookingTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type LinkRepoImpl struct{ pool *pgxpool.Pool }

func NewLinkRepo(pool *pgxpool.Pool) *LinkRepoImpl { return &LinkRepoImpl{pool: pool} }

func (r *LinkRepoImpl) CreateMagicLink(ctx context.Context, email, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id uuid.UUID
	// token_hash is UNIQUE; a collision surfaces as an insert error rather
	// than overwriting an existing row.
	err := r.pool.QueryRow(ctx, `
INSERT INTO pricing_magic_links (email, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id
`, email, tokenHash, expiresAt).Scan(&id)
	return id, err
}

func (r *LinkRepoImpl) ConsumeMagicLink(ctx context.Context, tokenHash string) (*domain.MagicLink, domain.ConsumeStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var link domain.MagicLink
	err := r.pool.QueryRow(ctx, `
UPDATE pricing_magic_links
SET used_at = now()
WHERE token_hash = $1
  AND used_at IS NULL
  AND expires_at > now()
RETURNING id, email, token_hash, expires_at, used_at, created_at
`, tokenHash).Scan(&link.ID, &link.Email, &link.TokenHash, &link.ExpiresAt, &link.UsedAt, &link.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyMiss(ctx, "pricing_magic_links", tokenHash), nil
	}
	if err != nil {
		return nil, domain.ConsumeNotFound, err
	}
	return &link, domain.ConsumeOK, nil
}

func (r *LinkRepoImpl) FindActiveMagicLink(ctx context.Context, tokenHash string) (*domain.MagicLink, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var link domain.MagicLink
	err := r.pool.QueryRow(ctx, `
SELECT id, email, token_hash, expires_at, used_at, created_at
FROM pricing_magic_links
WHERE token_hash = $1
  AND used_at IS NULL
  AND expires_at > now()
`, tokenHash).Scan(&link.ID, &link.Email, &link.TokenHash, &link.ExpiresAt, &link.UsedAt, &link.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *LinkRepoImpl) CountRecentMagicLinks(ctx context.Context, email string, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*) FROM pricing_magic_links
WHERE email = $1 AND created_at > $2
`, email, since).Scan(&count)
	return count, err
}

func (r *LinkRepoImpl) DeleteExpiredMagicLinks(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM pricing_magic_links WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *LinkRepoImpl) CreateBookingToken(ctx context.Context, clientID string, bookingType domain.BookingType, tokenHash, createdBy string, expiresAt time.Time) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
INSERT INTO booking_access_tokens (client_id, booking_type, token_hash, expires_at, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, clientID, string(bookingType), tokenHash, expiresAt, createdBy).Scan(&id)
	return id, err
}

func (r *LinkRepoImpl) ConsumeBookingToken(ctx context.Context, tokenHash string) (*domain.BookingToken, domain.ConsumeStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var tok domain.BookingToken
	err := r.pool.QueryRow(ctx, `
UPDATE booking_access_tokens
SET used_at = now()
WHERE token_hash = $1
  AND used_at IS NULL
  AND expires_at > now()
RETURNING id, client_id, booking_type, token_hash, expires_at, used_at, created_by, created_at
`, tokenHash).Scan(&tok.ID, &tok.ClientID, &tok.BookingType, &tok.TokenHash, &tok.ExpiresAt, &tok.UsedAt, &tok.CreatedBy, &tok.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.classifyMiss(ctx, "booking_access_tokens", tokenHash), nil
	}
	if err != nil {
		return nil, domain.ConsumeNotFound, err
	}
	return &tok, domain.ConsumeOK, nil
}

func (r *LinkRepoImpl) DeleteExpiredBookingTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM booking_access_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// classifyMiss runs a read-only lookup after a zero-row consume to tell
// expired from used from unknown. The result feeds logs and events only;
// the access decision was already made by the UPDATE.
func (r *LinkRepoImpl) classifyMiss(ctx context.Context, table, tokenHash string) domain.ConsumeStatus {
	var (
		expiresAt time.Time
		usedAt    *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT expires_at, used_at FROM `+table+` WHERE token_hash = $1`,
		tokenHash,
	).Scan(&expiresAt, &usedAt)
	if err != nil {
		return domain.ConsumeNotFound
	}
	if usedAt != nil {
		return domain.ConsumeUsed
	}
	if !expiresAt.After(time.Now()) {
		return domain.ConsumeExpired
	}
	return domain.ConsumeNotFound
}
