package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
)

// In-memory stores backing the handler tests. Consumption takes the same
// lock as creation so the single-use guarantee holds under the race
// detector.

type fakeLinks struct {
	mu       sync.Mutex
	magic    map[string]*domain.MagicLink
	booking  map[string]*domain.BookingToken
	consumes int
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{
		magic:   make(map[string]*domain.MagicLink),
		booking: make(map[string]*domain.BookingToken),
	}
}

func (f *fakeLinks) CreateMagicLink(_ context.Context, email, tokenHash string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.magic[tokenHash] = &domain.MagicLink{
		ID:        id,
		Email:     email,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeLinks) ConsumeMagicLink(_ context.Context, tokenHash string) (*domain.MagicLink, domain.ConsumeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumes++
	link, ok := f.magic[tokenHash]
	if !ok {
		return nil, domain.ConsumeNotFound, nil
	}
	if link.UsedAt != nil {
		return nil, domain.ConsumeUsed, nil
	}
	if time.Now().After(link.ExpiresAt) {
		return nil, domain.ConsumeExpired, nil
	}
	now := time.Now()
	link.UsedAt = &now
	return link, domain.ConsumeOK, nil
}

func (f *fakeLinks) FindActiveMagicLink(_ context.Context, tokenHash string) (*domain.MagicLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.magic[tokenHash]
	if !ok || link.UsedAt != nil || time.Now().After(link.ExpiresAt) {
		return nil, nil
	}
	return link, nil
}

func (f *fakeLinks) CountRecentMagicLinks(_ context.Context, email string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, link := range f.magic {
		if link.Email == email && link.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeLinks) DeleteExpiredMagicLinks(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, link := range f.magic {
		if link.ExpiresAt.Before(cutoff) {
			delete(f.magic, hash)
			n++
		}
	}
	return n, nil
}

func (f *fakeLinks) CreateBookingToken(_ context.Context, clientID string, bookingType domain.BookingType, tokenHash, createdBy string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.booking[tokenHash] = &domain.BookingToken{
		ID:          id,
		ClientID:    clientID,
		BookingType: bookingType,
		TokenHash:   tokenHash,
		ExpiresAt:   expiresAt,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	return id, nil
}

func (f *fakeLinks) ConsumeBookingToken(_ context.Context, tokenHash string) (*domain.BookingToken, domain.ConsumeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.booking[tokenHash]
	if !ok {
		return nil, domain.ConsumeNotFound, nil
	}
	if tok.UsedAt != nil {
		return nil, domain.ConsumeUsed, nil
	}
	if time.Now().After(tok.ExpiresAt) {
		return nil, domain.ConsumeExpired, nil
	}
	now := time.Now()
	tok.UsedAt = &now
	return tok, domain.ConsumeOK, nil
}

func (f *fakeLinks) DeleteExpiredBookingTokens(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for hash, tok := range f.booking {
		if tok.ExpiresAt.Before(cutoff) {
			delete(f.booking, hash)
			n++
		}
	}
	return n, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	pricing map[uuid.UUID]*domain.PricingSession
	booking map[uuid.UUID]*domain.BookingSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		pricing: make(map[uuid.UUID]*domain.PricingSession),
		booking: make(map[uuid.UUID]*domain.BookingSession),
	}
}

func (f *fakeSessions) CreatePricingSession(_ context.Context, email string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.pricing[id] = &domain.PricingSession{ID: id, Email: email, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeSessions) ValidatePricingSession(_ context.Context, id uuid.UUID) (*domain.PricingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.pricing[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSessions) DeletePricingSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pricing, id)
	return nil
}

func (f *fakeSessions) DeleteExpiredPricingSessions(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.pricing {
		if s.ExpiresAt.Before(cutoff) {
			delete(f.pricing, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) CreateBookingSession(_ context.Context, clientID string, bookingType domain.BookingType, clientEmail string, expiresAt time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.booking[id] = &domain.BookingSession{
		ID:          id,
		ClientID:    clientID,
		BookingType: bookingType,
		ClientEmail: clientEmail,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	return id, nil
}

func (f *fakeSessions) ValidateBookingSession(_ context.Context, id uuid.UUID) (*domain.BookingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.booking[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSessions) DeleteBookingSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.booking, id)
	return nil
}

func (f *fakeSessions) DeleteExpiredBookingSessions(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.booking {
		if s.ExpiresAt.Before(cutoff) {
			delete(f.booking, id)
			n++
		}
	}
	return n, nil
}

type fakeClients struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Client
	byID    map[string]*domain.Client
	seq     int
}

func newFakeClients() *fakeClients {
	return &fakeClients{
		byEmail: make(map[string]*domain.Client),
		byID:    make(map[string]*domain.Client),
	}
}

func (f *fakeClients) Upsert(_ context.Context, name, contactEmail, company string) (*domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byEmail[contactEmail]; ok {
		return c, nil
	}
	f.seq++
	c := &domain.Client{
		ID:           uuid.NewString()[:16],
		Name:         name,
		ContactEmail: contactEmail,
		Company:      company,
	}
	f.byEmail[contactEmail] = c
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeClients) GetByID(_ context.Context, id string) (*domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

type fakeMailer struct {
	mu       sync.Mutex
	pricing  []string // recipient per SendPricingLink call
	booking  []string
	lastLink string
	err      error
}

func (f *fakeMailer) SendPricingLink(toEmail, _, link string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pricing = append(f.pricing, toEmail)
	f.lastLink = link
	return nil
}

func (f *fakeMailer) SendBookingLink(toEmail string, _ string, _ domain.BookingType, link string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.booking = append(f.booking, toEmail)
	f.lastLink = link
	return nil
}
