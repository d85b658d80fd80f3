package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/sctbrt/bertrandbrands.com/internal/access"
	"github.com/sctbrt/bertrandbrands.com/internal/domain"
	"github.com/sctbrt/bertrandbrands.com/internal/http/cookies"
	"github.com/sctbrt/bertrandbrands.com/internal/http/response"
	"github.com/sctbrt/bertrandbrands.com/internal/http/web"
	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

type BookingHandler struct {
	svc         *access.BookingService
	cookies     cookies.Policy
	appURL      string
	adminSecret string
}

func NewBookingHandler(svc *access.BookingService, policy cookies.Policy, appURL, adminSecret string) *BookingHandler {
	return &BookingHandler{svc: svc, cookies: policy, appURL: appURL, adminSecret: adminSecret}
}

func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/create-token", h.createToken) // admin only
	r.Get("/access", h.access)             // ?token=...
	r.Get("/check-access", h.checkAccess)
	r.Post("/logout", h.logout)
	return r
}

type createTokenIn struct {
	ClientName  string `json:"clientName"`
	ClientEmail string `json:"clientEmail"`
	Company     string `json:"company"`
	BookingType string `json:"bookingType"`
	CreatedBy   string `json:"createdBy"`
}

type createTokenOut struct {
	OK          bool      `json:"ok"`
	ClientID    string    `json:"clientId"`
	BookingType string    `json:"bookingType"`
	Label       string    `json:"bookingTypeLabel"`
	ExpiresAt   time.Time `json:"expiresAt"`
	EmailSent   bool      `json:"emailSent"`
}

func (h *BookingHandler) createToken(w http.ResponseWriter, r *http.Request) {
	if h.adminSecret == "" {
		logger.ErrorContext(r.Context(), "create-token called with no admin secret configured")
		response.InternalError(w, "Service unavailable")
		return
	}
	if !h.adminAuthorized(r.Header.Get("X-Admin-Secret")) {
		response.Unauthorized(w, "Invalid admin secret")
		return
	}

	var in createTokenIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.svc.CreateToken(r.Context(), access.CreateTokenInput{
		ClientName:  in.ClientName,
		ClientEmail: in.ClientEmail,
		Company:     in.Company,
		BookingType: domain.BookingType(in.BookingType),
		CreatedBy:   in.CreatedBy,
	})
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		response.BadRequest(w, "clientName, clientEmail and bookingType are required")
		return
	case errors.Is(err, domain.ErrInvalidBookingType):
		response.BadRequest(w, "bookingType must be one of: "+strings.Join(bookingTypeNames(), ", "))
		return
	case errors.Is(err, domain.ErrInvalidEmail):
		response.BadRequest(w, "clientEmail is not a valid email address")
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "create-token failed", "error", err)
		response.InternalError(w, "Failed to create booking token")
		return
	}

	bt := domain.BookingType(in.BookingType)
	response.WriteJSON(w, http.StatusOK, createTokenOut{
		OK:          true,
		ClientID:    result.Client.ID,
		BookingType: string(bt),
		Label:       bt.Label(),
		ExpiresAt:   result.ExpiresAt,
		EmailSent:   result.EmailSent,
	})
}

// adminAuthorized accepts either a plain shared secret or an argon2id hash
// of it in configuration. Comparison against a plain secret is constant
// time.
func (h *BookingHandler) adminAuthorized(presented string) bool {
	if presented == "" {
		return false
	}
	if strings.HasPrefix(h.adminSecret, "$argon2id$") {
		match, err := argon2id.ComparePasswordAndHash(presented, h.adminSecret)
		return err == nil && match
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.adminSecret)) == 1
}

func (h *BookingHandler) access(w http.ResponseWriter, r *http.Request) {
	rawToken := r.URL.Query().Get("token")

	session, err := h.svc.Redeem(r.Context(), rawToken)
	switch {
	case errors.Is(err, domain.ErrMalformedToken):
		web.RenderError(w, http.StatusBadRequest,
			"Invalid Link",
			"This link appears to be malformed. Please contact us for a new booking link.",
			"/book", "Back to Booking")
		return
	case errors.Is(err, domain.ErrLinkUnusable):
		web.RenderError(w, http.StatusBadRequest,
			"Link Expired or Already Used",
			"This booking link has either expired or has already been used. Booking links can only be used once. Please contact us for a new one.",
			"/book", "Back to Booking")
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "booking access failed", "error", err)
		web.RenderError(w, http.StatusInternalServerError,
			"Something Went Wrong",
			"We encountered an error processing your booking link. Please try again or contact us for a new one.",
			"/book", "Back to Booking")
		return
	}

	ttl := time.Until(session.ExpiresAt)
	http.SetCookie(w, h.cookies.Session(cookies.BookingSession, session.ID.String(), r.Host, ttl))
	http.Redirect(w, r, h.appURL+"/booking/schedule", http.StatusFound)
}

type bookingStatus struct {
	HasAccess        bool       `json:"hasAccess"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	RemainingMinutes *int       `json:"remainingMinutes,omitempty"`
	BookingType      string     `json:"bookingType,omitempty"`
	BookingTypeLabel string     `json:"bookingTypeLabel,omitempty"`
	ClientEmail      string     `json:"clientEmail,omitempty"`
	CalendlyURL      string     `json:"calendlyUrl,omitempty"`
	CalendlyActive   bool       `json:"calendlyActive,omitempty"`
}

func (h *BookingHandler) checkAccess(w http.ResponseWriter, r *http.Request) {
	c, cookieErr := r.Cookie(cookies.BookingSession)
	if cookieErr != nil || c.Value == "" {
		response.WriteJSON(w, http.StatusOK, bookingStatus{})
		return
	}

	session, err := h.svc.CheckAccess(r.Context(), c.Value)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking check-access failed", "error", err)
		response.WriteJSON(w, http.StatusOK, bookingStatus{})
		return
	}
	if session == nil {
		http.SetCookie(w, h.cookies.Clear(cookies.BookingSession, r.Host))
		response.WriteJSON(w, http.StatusOK, bookingStatus{})
		return
	}

	scheduler, _ := session.BookingType.Scheduler()
	remaining := remainingMinutes(session.ExpiresAt)
	response.WriteJSON(w, http.StatusOK, bookingStatus{
		HasAccess:        true,
		ExpiresAt:        &session.ExpiresAt,
		RemainingMinutes: &remaining,
		BookingType:      string(session.BookingType),
		BookingTypeLabel: session.BookingType.Label(),
		ClientEmail:      session.ClientEmail,
		CalendlyURL:      scheduler.URL,
		CalendlyActive:   scheduler.Active,
	})
}

func (h *BookingHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.Clear(cookies.BookingSession, r.Host))

	if c, err := r.Cookie(cookies.BookingSession); err == nil && c.Value != "" {
		h.svc.Logout(r.Context(), c.Value)
	}

	response.OK(w)
}

func bookingTypeNames() []string {
	types := domain.BookingTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
