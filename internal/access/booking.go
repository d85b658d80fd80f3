package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
	"github.com/sctbrt/bertrandbrands.com/internal/mailer"
	"github.com/sctbrt/bertrandbrands.com/internal/repo/postgres"
	"github.com/sctbrt/bertrandbrands.com/internal/utils"
	"github.com/sctbrt/bertrandbrands.com/pkg/config"
	"github.com/sctbrt/bertrandbrands.com/pkg/events"
	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
	"github.com/sctbrt/bertrandbrands.com/pkg/token"
)

type BookingService struct {
	links    postgres.LinkRepo
	sessions postgres.SessionRepo
	clients  postgres.ClientRepo
	mailer   mailer.Service
	events   events.Publisher
	cfg      config.AccessConfig
	appURL   string
}

func NewBookingService(
	links postgres.LinkRepo,
	sessions postgres.SessionRepo,
	clients postgres.ClientRepo,
	mail mailer.Service,
	pub events.Publisher,
	cfg config.AccessConfig,
	appURL string,
) *BookingService {
	return &BookingService{
		links:    links,
		sessions: sessions,
		clients:  clients,
		mailer:   mail,
		events:   pub,
		cfg:      cfg,
		appURL:   appURL,
	}
}

type CreateTokenInput struct {
	ClientName  string
	ClientEmail string
	Company     string
	BookingType domain.BookingType
	CreatedBy   string
}

type CreateTokenResult struct {
	Client    *domain.Client
	TokenID   uuid.UUID
	ExpiresAt time.Time
	// EmailSent reports whether the link was handed to the mailer without
	// error. The token exists either way; the admin surface shows this so
	// a failed delivery can be retried by hand.
	EmailSent bool
}

// CreateToken is the admin-driven issuance path: upsert the client record,
// mint a scoped token, email the booking link. Unlike request-access this
// surface reports real validation errors; it sits behind the admin secret.
func (s *BookingService) CreateToken(ctx context.Context, in CreateTokenInput) (*CreateTokenResult, error) {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientEmail = utils.NormalizeEmail(in.ClientEmail)

	if in.ClientName == "" || in.ClientEmail == "" || in.BookingType == "" {
		return nil, domain.ErrMissingFields
	}
	if !in.BookingType.Valid() {
		return nil, domain.ErrInvalidBookingType
	}
	if !utils.IsValidEmail(in.ClientEmail) {
		return nil, domain.ErrInvalidEmail
	}
	if in.CreatedBy == "" {
		in.CreatedBy = "admin"
	}

	client, err := s.clients.Upsert(ctx, in.ClientName, in.ClientEmail, strings.TrimSpace(in.Company))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert client: %w", err)
	}

	raw, hash, err := token.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.BookingTokenTTL)
	id, err := s.links.CreateBookingToken(ctx, client.ID, in.BookingType, hash, in.CreatedBy, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking token: %w", err)
	}

	link := s.appURL + "/api/booking/access?token=" + raw
	firstName, _, _ := strings.Cut(in.ClientName, " ")
	emailSent := true
	if err := s.mailer.SendBookingLink(in.ClientEmail, firstName, in.BookingType, link, s.cfg.BookingTokenTTL); err != nil {
		emailSent = false
		logger.ErrorContext(ctx, "failed to send booking link",
			"error", err,
			"email", utils.MaskEmail(in.ClientEmail),
		)
	}

	_ = s.events.Publish(ctx, events.SubjectLinkRequested, map[string]any{
		"flow":         "booking",
		"booking_type": string(in.BookingType),
		"expires_at":   expiresAt,
	})

	logger.InfoContext(ctx, "booking token created",
		"email", utils.MaskEmail(in.ClientEmail),
		"booking_type", string(in.BookingType),
		"created_by", in.CreatedBy,
	)

	return &CreateTokenResult{Client: client, TokenID: id, ExpiresAt: expiresAt, EmailSent: emailSent}, nil
}

// Redeem consumes a booking token, resolves the client's contact email and
// mints a booking session. A failed client lookup aborts the attempt; a
// session is never created with partial subject data.
func (s *BookingService) Redeem(ctx context.Context, rawToken string) (*domain.BookingSession, error) {
	if !token.WellFormed(rawToken) {
		return nil, domain.ErrMalformedToken
	}

	tok, status, err := s.links.ConsumeBookingToken(ctx, token.Hash(rawToken))
	if err != nil {
		return nil, fmt.Errorf("failed to consume booking token: %w", err)
	}
	if status != domain.ConsumeOK {
		logger.InfoContext(ctx, "booking token rejected", "status", status.String())
		return nil, domain.ErrLinkUnusable
	}

	client, err := s.clients.GetByID(ctx, tok.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client: %w", err)
	}
	if client == nil {
		return nil, domain.ErrClientNotFound
	}

	expiresAt := time.Now().Add(s.cfg.BookingSessionTTL)
	id, err := s.sessions.CreateBookingSession(ctx, tok.ClientID, tok.BookingType, client.ContactEmail, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking session: %w", err)
	}

	_ = s.events.Publish(ctx, events.SubjectLinkConsumed, map[string]any{
		"flow":         "booking",
		"booking_type": string(tok.BookingType),
	})
	_ = s.events.Publish(ctx, events.SubjectSessionCreated, map[string]any{
		"flow":       "booking",
		"expires_at": expiresAt,
	})

	return &domain.BookingSession{
		ID:          id,
		ClientID:    tok.ClientID,
		BookingType: tok.BookingType,
		ClientEmail: client.ContactEmail,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *BookingService) CheckAccess(ctx context.Context, rawSessionID string) (*domain.BookingSession, error) {
	id, ok := domain.ParseSessionID(rawSessionID)
	if !ok {
		return nil, nil
	}
	return s.sessions.ValidateBookingSession(ctx, id)
}

func (s *BookingService) Logout(ctx context.Context, rawSessionID string) {
	id, ok := domain.ParseSessionID(rawSessionID)
	if !ok {
		return
	}
	if err := s.sessions.DeleteBookingSession(ctx, id); err != nil {
		logger.ErrorContext(ctx, "failed to delete booking session", "error", err)
		return
	}
	_ = s.events.Publish(ctx, events.SubjectSessionRevoked, map[string]any{"flow": "booking"})
}
