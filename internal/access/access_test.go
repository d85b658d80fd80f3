package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
	"github.com/sctbrt/bertrandbrands.com/internal/limiter"
	"github.com/sctbrt/bertrandbrands.com/pkg/config"
	"github.com/sctbrt/bertrandbrands.com/pkg/events"
)

// stubLinks implements postgres.LinkRepo with overridable behavior per test.
type stubLinks struct {
	mu           sync.Mutex
	consumeCalls int

	createMagic  func(email, hash string, expiresAt time.Time) (uuid.UUID, error)
	consumeMagic func(hash string) (*domain.MagicLink, domain.ConsumeStatus, error)
	createTok    func(clientID string, bt domain.BookingType, hash, by string, expiresAt time.Time) (uuid.UUID, error)
	consumeTok   func(hash string) (*domain.BookingToken, domain.ConsumeStatus, error)
	countRecent  func(email string, since time.Time) (int, error)
}

func (s *stubLinks) CreateMagicLink(_ context.Context, email, hash string, expiresAt time.Time) (uuid.UUID, error) {
	if s.createMagic == nil {
		return uuid.New(), nil
	}
	return s.createMagic(email, hash, expiresAt)
}

func (s *stubLinks) ConsumeMagicLink(_ context.Context, hash string) (*domain.MagicLink, domain.ConsumeStatus, error) {
	s.mu.Lock()
	s.consumeCalls++
	s.mu.Unlock()
	return s.consumeMagic(hash)
}

func (s *stubLinks) FindActiveMagicLink(context.Context, string) (*domain.MagicLink, error) {
	return nil, nil
}

func (s *stubLinks) CountRecentMagicLinks(_ context.Context, email string, since time.Time) (int, error) {
	if s.countRecent == nil {
		return 0, nil
	}
	return s.countRecent(email, since)
}

func (s *stubLinks) DeleteExpiredMagicLinks(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *stubLinks) CreateBookingToken(_ context.Context, clientID string, bt domain.BookingType, hash, by string, expiresAt time.Time) (uuid.UUID, error) {
	if s.createTok == nil {
		return uuid.New(), nil
	}
	return s.createTok(clientID, bt, hash, by, expiresAt)
}

func (s *stubLinks) ConsumeBookingToken(_ context.Context, hash string) (*domain.BookingToken, domain.ConsumeStatus, error) {
	return s.consumeTok(hash)
}

func (s *stubLinks) DeleteExpiredBookingTokens(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubSessions struct {
	mu            sync.Mutex
	pricingMinted int
	bookingMinted int
	deleted       []uuid.UUID

	validatePricing func(id uuid.UUID) (*domain.PricingSession, error)
	validateBooking func(id uuid.UUID) (*domain.BookingSession, error)
}

func (s *stubSessions) CreatePricingSession(_ context.Context, _ string, _ time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pricingMinted++
	return uuid.New(), nil
}

func (s *stubSessions) ValidatePricingSession(_ context.Context, id uuid.UUID) (*domain.PricingSession, error) {
	if s.validatePricing == nil {
		return nil, nil
	}
	return s.validatePricing(id)
}

func (s *stubSessions) DeletePricingSession(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubSessions) DeleteExpiredPricingSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *stubSessions) CreateBookingSession(_ context.Context, _ string, _ domain.BookingType, _ string, _ time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookingMinted++
	return uuid.New(), nil
}

func (s *stubSessions) ValidateBookingSession(_ context.Context, id uuid.UUID) (*domain.BookingSession, error) {
	if s.validateBooking == nil {
		return nil, nil
	}
	return s.validateBooking(id)
}

func (s *stubSessions) DeleteBookingSession(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubSessions) DeleteExpiredBookingSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stubClients struct {
	getByID func(id string) (*domain.Client, error)
}

func (s *stubClients) Upsert(_ context.Context, name, email, company string) (*domain.Client, error) {
	return &domain.Client{ID: "c1", Name: name, ContactEmail: email, Company: company}, nil
}

func (s *stubClients) GetByID(_ context.Context, id string) (*domain.Client, error) {
	if s.getByID == nil {
		return nil, nil
	}
	return s.getByID(id)
}

type stubMailer struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (s *stubMailer) SendPricingLink(string, string, string, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return s.err
}

func (s *stubMailer) SendBookingLink(string, string, domain.BookingType, string, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	return s.err
}

func testAccessConfig() config.AccessConfig {
	return config.AccessConfig{
		MagicLinkTTL:      15 * time.Minute,
		PricingSessionTTL: time.Hour,
		BookingTokenTTL:   72 * time.Hour,
		BookingSessionTTL: 4 * time.Hour,
		RateLimitWindow:   time.Hour,
		EmailPerWindow:    3,
		IPPerWindow:       10,
	}
}

func newTestLimiter(counter limiter.EmailCounter) *limiter.Limiter {
	return limiter.New(counter, nil, limiter.Config{
		Window:         time.Hour,
		EmailPerWindow: 3,
		IPPerWindow:    10,
	}, nil)
}

func TestRedeemConcurrentSingleUse(t *testing.T) {
	// The store grants exactly one consume; every concurrent redeemer after
	// the first must come back with the collapsed unusable error and no
	// session.
	var (
		mu       sync.Mutex
		consumed bool
	)
	links := &stubLinks{}
	links.consumeMagic = func(hash string) (*domain.MagicLink, domain.ConsumeStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		if consumed {
			return nil, domain.ConsumeUsed, nil
		}
		consumed = true
		return &domain.MagicLink{
			ID:        uuid.New(),
			Email:     "maya@example.com",
			TokenHash: hash,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}, domain.ConsumeOK, nil
	}
	sessions := &stubSessions{}
	svc := NewPricingService(links, sessions, newTestLimiter(links), &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	raw := "4cce592ff47aeb5ac25f64777b9c4a114dcb24644b52bf1e64eb60c7e374010f"

	const n = 8
	var wg sync.WaitGroup
	successes := make(chan *domain.PricingSession, n)
	failures := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := svc.Redeem(context.Background(), raw)
			if err != nil {
				failures <- err
				return
			}
			successes <- sess
		}()
	}
	wg.Wait()
	close(successes)
	close(failures)

	if got := len(successes); got != 1 {
		t.Fatalf("%d redeems succeeded, want exactly 1", got)
	}
	for err := range failures {
		if !errors.Is(err, domain.ErrLinkUnusable) {
			t.Errorf("loser got %v, want ErrLinkUnusable", err)
		}
	}
	if sessions.pricingMinted != 1 {
		t.Errorf("minted %d sessions, want 1", sessions.pricingMinted)
	}
}

func TestRedeemExpiredTokenCollapses(t *testing.T) {
	// Expired is one of the three miss classes; externally it must be the
	// same outcome as used or unknown, with no session minted.
	links := &stubLinks{}
	links.consumeMagic = func(string) (*domain.MagicLink, domain.ConsumeStatus, error) {
		return nil, domain.ConsumeExpired, nil
	}
	sessions := &stubSessions{}
	svc := NewPricingService(links, sessions, newTestLimiter(links), &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	raw := "4cce592ff47aeb5ac25f64777b9c4a114dcb24644b52bf1e64eb60c7e374010f"
	_, err := svc.Redeem(context.Background(), raw)
	if !errors.Is(err, domain.ErrLinkUnusable) {
		t.Fatalf("err = %v, want ErrLinkUnusable", err)
	}
	if sessions.pricingMinted != 0 {
		t.Errorf("minted %d sessions from an expired token", sessions.pricingMinted)
	}
}

func TestRedeemMalformedTokenSkipsStore(t *testing.T) {
	links := &stubLinks{}
	links.consumeMagic = func(string) (*domain.MagicLink, domain.ConsumeStatus, error) {
		t.Fatal("store touched for a malformed token")
		return nil, domain.ConsumeNotFound, nil
	}
	svc := NewPricingService(links, &stubSessions{}, newTestLimiter(links), &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	for _, raw := range []string{
		"",
		"short",
		"4CCE592FF47AEB5AC25F64777B9C4A114DCB24644B52BF1E64EB60C7E374010F", // uppercase
		"4cce592ff47aeb5ac25f64777b9c4a114dcb24644b52bf1e64eb60c7e374010", // 63 chars
	} {
		if _, err := svc.Redeem(context.Background(), raw); !errors.Is(err, domain.ErrMalformedToken) {
			t.Errorf("Redeem(%q) = %v, want ErrMalformedToken", raw, err)
		}
	}
	if links.consumeCalls != 0 {
		t.Errorf("store consume called %d times", links.consumeCalls)
	}
}

func TestRequestAccessInvalidEmail(t *testing.T) {
	links := &stubLinks{}
	links.createMagic = func(string, string, time.Time) (uuid.UUID, error) {
		t.Fatal("link created for an invalid address")
		return uuid.Nil, nil
	}
	svc := NewPricingService(links, &stubSessions{}, newTestLimiter(links), &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	err := svc.RequestAccess(context.Background(), "not-an-email", "", "203.0.113.9")
	if !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
}

func TestRequestAccessRateLimited(t *testing.T) {
	links := &stubLinks{}
	links.countRecent = func(string, time.Time) (int, error) { return 3, nil }
	mail := &stubMailer{}
	svc := NewPricingService(links, &stubSessions{}, newTestLimiter(links), mail, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	err := svc.RequestAccess(context.Background(), "maya@example.com", "Maya", "203.0.113.9")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if mail.sent != 0 {
		t.Errorf("mail sent %d times while rate limited", mail.sent)
	}
}

func TestRequestAccessSurvivesMailFailure(t *testing.T) {
	// The link row exists before delivery is attempted; a dead mailer must
	// not turn the request into an error the handler could leak.
	links := &stubLinks{}
	mail := &stubMailer{err: errors.New("smtp: connection refused")}
	svc := NewPricingService(links, &stubSessions{}, newTestLimiter(links), mail, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	if err := svc.RequestAccess(context.Background(), "maya@example.com", "Maya", ""); err != nil {
		t.Fatalf("RequestAccess = %v, want nil despite mailer failure", err)
	}
	if mail.sent != 1 {
		t.Errorf("mail attempts = %d, want 1", mail.sent)
	}
}

func TestCreateTokenReportsDeliveryOutcome(t *testing.T) {
	in := CreateTokenInput{
		ClientName:  "Ada Example",
		ClientEmail: "ada@example.com",
		BookingType: domain.BookingFocusStudioKickoff,
	}

	svc := NewBookingService(&stubLinks{}, &stubSessions{}, &stubClients{}, &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")
	result, err := svc.CreateToken(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if !result.EmailSent {
		t.Error("EmailSent = false for a successful delivery")
	}

	svc = NewBookingService(&stubLinks{}, &stubSessions{}, &stubClients{}, &stubMailer{err: errors.New("smtp: connection refused")}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")
	result, err = svc.CreateToken(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateToken with dead mailer: %v", err)
	}
	if result.EmailSent {
		t.Error("EmailSent = true despite a failed delivery")
	}
}

func TestBookingRedeemMissingClientAborts(t *testing.T) {
	links := &stubLinks{}
	links.consumeTok = func(hash string) (*domain.BookingToken, domain.ConsumeStatus, error) {
		return &domain.BookingToken{
			ID:          uuid.New(),
			ClientID:    "ghost",
			BookingType: domain.BookingFocusStudioKickoff,
			TokenHash:   hash,
			ExpiresAt:   time.Now().Add(time.Hour),
		}, domain.ConsumeOK, nil
	}
	sessions := &stubSessions{}
	clients := &stubClients{} // GetByID returns nil
	svc := NewBookingService(links, sessions, clients, &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	raw := "4cce592ff47aeb5ac25f64777b9c4a114dcb24644b52bf1e64eb60c7e374010f"
	_, err := svc.Redeem(context.Background(), raw)
	if !errors.Is(err, domain.ErrClientNotFound) {
		t.Fatalf("err = %v, want ErrClientNotFound", err)
	}
	if sessions.bookingMinted != 0 {
		t.Errorf("minted %d sessions with a missing client", sessions.bookingMinted)
	}
}

func TestCreateTokenValidation(t *testing.T) {
	svc := NewBookingService(&stubLinks{}, &stubSessions{}, &stubClients{}, &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	tests := []struct {
		name string
		in   CreateTokenInput
		want error
	}{
		{"no name", CreateTokenInput{ClientEmail: "a@b.co", BookingType: domain.BookingFocusStudioKickoff}, domain.ErrMissingFields},
		{"no email", CreateTokenInput{ClientName: "Ada", BookingType: domain.BookingFocusStudioKickoff}, domain.ErrMissingFields},
		{"no type", CreateTokenInput{ClientName: "Ada", ClientEmail: "a@b.co"}, domain.ErrMissingFields},
		{"bad type", CreateTokenInput{ClientName: "Ada", ClientEmail: "a@b.co", BookingType: "grand_tour"}, domain.ErrInvalidBookingType},
		{"bad email", CreateTokenInput{ClientName: "Ada", ClientEmail: "nope", BookingType: domain.BookingFocusStudioKickoff}, domain.ErrInvalidEmail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateToken(context.Background(), tc.in); !errors.Is(err, tc.want) {
				t.Errorf("CreateToken = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCheckAccessBadShape(t *testing.T) {
	sessions := &stubSessions{
		validatePricing: func(uuid.UUID) (*domain.PricingSession, error) {
			t.Fatal("store queried for a malformed session id")
			return nil, nil
		},
	}
	links := &stubLinks{}
	svc := NewPricingService(links, sessions, newTestLimiter(links), &stubMailer{}, events.Noop{}, testAccessConfig(), "https://bertrandbrands.com")

	sess, err := svc.CheckAccess(context.Background(), "not-a-uuid")
	if err != nil || sess != nil {
		t.Fatalf("CheckAccess = %v, %v; want nil, nil", sess, err)
	}
}
