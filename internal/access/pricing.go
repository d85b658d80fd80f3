// Package access orchestrates the token lifecycle: request a link, redeem
// it for a session, validate the session, revoke it. Handlers own the HTTP
// shapes; the stores own atomicity; this layer owns the ordering and the
// collapsing of failure modes.
package access

import (
	"context"
	"fmt"
	"time"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
	"github.com/sctbrt/bertrandbrands.com/internal/limiter"
	"github.com/sctbrt/bertrandbrands.com/internal/mailer"
	"github.com/sctbrt/bertrandbrands.com/internal/repo/postgres"
	"github.com/sctbrt/bertrandbrands.com/internal/utils"
	"github.com/sctbrt/bertrandbrands.com/pkg/config"
	"github.com/sctbrt/bertrandbrands.com/pkg/events"
	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
	"github.com/sctbrt/bertrandbrands.com/pkg/token"
)

type PricingService struct {
	links    postgres.LinkRepo
	sessions postgres.SessionRepo
	limiter  *limiter.Limiter
	mailer   mailer.Service
	events   events.Publisher
	cfg      config.AccessConfig
	appURL   string
}

func NewPricingService(
	links postgres.LinkRepo,
	sessions postgres.SessionRepo,
	lim *limiter.Limiter,
	mail mailer.Service,
	pub events.Publisher,
	cfg config.AccessConfig,
	appURL string,
) *PricingService {
	return &PricingService{
		links:    links,
		sessions: sessions,
		limiter:  lim,
		mailer:   mail,
		events:   pub,
		cfg:      cfg,
		appURL:   appURL,
	}
}

// RequestAccess mints and delivers a pricing magic link. Every error it
// returns is for the caller's logs only; the HTTP boundary reports success
// regardless, so recipients can't be enumerated.
func (s *PricingService) RequestAccess(ctx context.Context, email, firstName, clientIP string) error {
	email = utils.NormalizeEmail(email)
	if !utils.IsValidEmail(email) {
		return domain.ErrInvalidEmail
	}

	if d := s.limiter.CheckAndRecord(ctx, email, clientIP); !d.Allowed {
		logger.WarnContext(ctx, "request-access rate limited",
			"reason", d.Reason,
			"email", utils.MaskEmail(email),
		)
		return domain.ErrRateLimited
	}

	raw, hash, err := token.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.MagicLinkTTL)
	if _, err := s.links.CreateMagicLink(ctx, email, hash, expiresAt); err != nil {
		return fmt.Errorf("failed to create magic link: %w", err)
	}

	link := s.appURL + "/api/pricing/access?token=" + raw
	if err := s.mailer.SendPricingLink(email, firstName, link, s.cfg.MagicLinkTTL); err != nil {
		// The row exists; a delivery failure must not change the response.
		logger.ErrorContext(ctx, "failed to send pricing link",
			"error", err,
			"email", utils.MaskEmail(email),
		)
	}

	_ = s.events.Publish(ctx, events.SubjectLinkRequested, map[string]any{
		"flow":       "pricing",
		"expires_at": expiresAt,
	})

	logger.InfoContext(ctx, "magic link sent",
		"email", utils.MaskEmail(email),
		"ip", clientIP,
	)
	return nil
}

// Redeem consumes a presented token and mints a session. Shape rejection
// never touches a store; not-found, expired and already-used all come back
// as ErrLinkUnusable.
func (s *PricingService) Redeem(ctx context.Context, rawToken string) (*domain.PricingSession, error) {
	if !token.WellFormed(rawToken) {
		return nil, domain.ErrMalformedToken
	}

	link, status, err := s.links.ConsumeMagicLink(ctx, token.Hash(rawToken))
	if err != nil {
		return nil, fmt.Errorf("failed to consume magic link: %w", err)
	}
	if status != domain.ConsumeOK {
		logger.InfoContext(ctx, "magic link rejected", "status", status.String())
		return nil, domain.ErrLinkUnusable
	}

	expiresAt := time.Now().Add(s.cfg.PricingSessionTTL)
	id, err := s.sessions.CreatePricingSession(ctx, link.Email, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create pricing session: %w", err)
	}

	_ = s.events.Publish(ctx, events.SubjectLinkConsumed, map[string]any{"flow": "pricing"})
	_ = s.events.Publish(ctx, events.SubjectSessionCreated, map[string]any{
		"flow":       "pricing",
		"expires_at": expiresAt,
	})

	return &domain.PricingSession{
		ID:        id,
		Email:     link.Email,
		ExpiresAt: expiresAt,
	}, nil
}

// CheckAccess validates a session identifier from a cookie. A nil session
// with a nil error means "no access" without anything going wrong; the
// handler decides whether to clear the cookie.
func (s *PricingService) CheckAccess(ctx context.Context, rawSessionID string) (*domain.PricingSession, error) {
	id, ok := domain.ParseSessionID(rawSessionID)
	if !ok {
		return nil, nil
	}
	return s.sessions.ValidatePricingSession(ctx, id)
}

// Logout deletes the session best-effort. It never fails the caller.
func (s *PricingService) Logout(ctx context.Context, rawSessionID string) {
	id, ok := domain.ParseSessionID(rawSessionID)
	if !ok {
		return
	}
	if err := s.sessions.DeletePricingSession(ctx, id); err != nil {
		logger.ErrorContext(ctx, "failed to delete pricing session", "error", err)
		return
	}
	_ = s.events.Publish(ctx, events.SubjectSessionRevoked, map[string]any{"flow": "pricing"})
}
