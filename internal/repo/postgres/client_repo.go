package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
)

// ClientRepo stores the client records booking tokens point at.
type ClientRepo interface {
	// Upsert inserts a client if the contact email is new, otherwise
	// returns the existing record unchanged.
	Upsert(ctx context.Context, name, contactEmail, company string) (*domain.Client, error)
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

type ClientRepoImpl struct{ pool *pgxpool.Pool }

func NewClientRepo(pool *pgxpool.Pool) *ClientRepoImpl { return &ClientRepoImpl{pool: pool} }

func (r *ClientRepoImpl) Upsert(ctx context.Context, name, contactEmail, company string) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.Client
	var companyVal *string
	err := r.pool.QueryRow(ctx, `
SELECT id, name, contact_email, company
FROM clients
WHERE contact_email = $1
`, contactEmail).Scan(&c.ID, &c.Name, &c.ContactEmail, &companyVal)
	if err == nil {
		if companyVal != nil {
			c.Company = *companyVal
		}
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	id, err := newClientID()
	if err != nil {
		return nil, err
	}

	var insCompany *string
	if company != "" {
		insCompany = &company
	}
	err = r.pool.QueryRow(ctx, `
INSERT INTO clients (id, name, contact_email, company)
VALUES ($1, $2, $3, $4)
RETURNING id, name, contact_email, company
`, id, name, contactEmail, insCompany).Scan(&c.ID, &c.Name, &c.ContactEmail, &companyVal)
	if err != nil {
		return nil, err
	}
	if companyVal != nil {
		c.Company = *companyVal
	}
	return &c, nil
}

func (r *ClientRepoImpl) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.Client
	var companyVal *string
	err := r.pool.QueryRow(ctx, `
SELECT id, name, contact_email, company
FROM clients
WHERE id = $1
`, id).Scan(&c.ID, &c.Name, &c.ContactEmail, &companyVal)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if companyVal != nil {
		c.Company = *companyVal
	}
	return &c, nil
}

// Client ids are short hex handles, not UUIDs; they end up in admin tooling
// and emails.
func newClientID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate client id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
