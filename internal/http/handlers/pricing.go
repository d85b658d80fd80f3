package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sctbrt/bertrandbrands.com/internal/access"
	"github.com/sctbrt/bertrandbrands.com/internal/domain"
	"github.com/sctbrt/bertrandbrands.com/internal/http/cookies"
	"github.com/sctbrt/bertrandbrands.com/internal/http/middleware"
	"github.com/sctbrt/bertrandbrands.com/internal/http/response"
	"github.com/sctbrt/bertrandbrands.com/internal/http/web"
	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

type PricingHandler struct {
	svc     *access.PricingService
	cookies cookies.Policy
	appURL  string
}

func NewPricingHandler(svc *access.PricingService, policy cookies.Policy, appURL string) *PricingHandler {
	return &PricingHandler{svc: svc, cookies: policy, appURL: appURL}
}

func (h *PricingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/request-access", h.requestAccess) // {email, firstName?}
	r.Get("/access", h.access)                 // ?token=...
	r.Get("/check-access", h.checkAccess)
	r.Post("/logout", h.logout)
	return r
}

type requestAccessIn struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
}

// requestAccess reports success no matter what happened inside. A bad
// address, a rate-limited one and a delivered link are indistinguishable
// to the caller.
func (h *PricingHandler) requestAccess(w http.ResponseWriter, r *http.Request) {
	var in requestAccessIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.OK(w)
		return
	}

	err := h.svc.RequestAccess(r.Context(), in.Email, in.FirstName, middleware.ClientIP(r))
	if err != nil && !errors.Is(err, domain.ErrInvalidEmail) && !errors.Is(err, domain.ErrRateLimited) {
		logger.ErrorContext(r.Context(), "request-access failed", "error", err)
	}

	response.OK(w)
}

func (h *PricingHandler) access(w http.ResponseWriter, r *http.Request) {
	rawToken := r.URL.Query().Get("token")

	session, err := h.svc.Redeem(r.Context(), rawToken)
	switch {
	case errors.Is(err, domain.ErrMalformedToken):
		web.RenderError(w, http.StatusBadRequest,
			"Invalid Link",
			"This link appears to be malformed. Please request a new pricing access link.",
			"/#services", "Back to Services")
		return
	case errors.Is(err, domain.ErrLinkUnusable):
		web.RenderError(w, http.StatusBadRequest,
			"Link Expired or Already Used",
			"This link has either expired or has already been used. Pricing links can only be used once and expire shortly after they are sent.",
			"/#services", "Back to Services")
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "pricing access failed", "error", err)
		web.RenderError(w, http.StatusInternalServerError,
			"Something Went Wrong",
			"We encountered an error processing your request. Please try requesting a new pricing access link.",
			"/#services", "Back to Services")
		return
	}

	ttl := time.Until(session.ExpiresAt)
	http.SetCookie(w, h.cookies.Session(cookies.PricingSession, session.ID.String(), r.Host, ttl))
	http.Redirect(w, r, h.appURL+"/#services", http.StatusFound)
}

type pricingStatus struct {
	HasAccess        bool       `json:"hasAccess"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	RemainingMinutes *int       `json:"remainingMinutes,omitempty"`
}

// checkAccess never errors to the caller; internal failures degrade to
// hasAccess:false. The only write is the clear-cookie on a known-dead
// session.
func (h *PricingHandler) checkAccess(w http.ResponseWriter, r *http.Request) {
	c, cookieErr := r.Cookie(cookies.PricingSession)
	if cookieErr != nil || c.Value == "" {
		response.WriteJSON(w, http.StatusOK, pricingStatus{})
		return
	}

	session, err := h.svc.CheckAccess(r.Context(), c.Value)
	if err != nil {
		logger.ErrorContext(r.Context(), "pricing check-access failed", "error", err)
		response.WriteJSON(w, http.StatusOK, pricingStatus{})
		return
	}
	if session == nil {
		http.SetCookie(w, h.cookies.Clear(cookies.PricingSession, r.Host))
		response.WriteJSON(w, http.StatusOK, pricingStatus{})
		return
	}

	remaining := remainingMinutes(session.ExpiresAt)
	response.WriteJSON(w, http.StatusOK, pricingStatus{
		HasAccess:        true,
		ExpiresAt:        &session.ExpiresAt,
		RemainingMinutes: &remaining,
	})
}

func (h *PricingHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.Clear(cookies.PricingSession, r.Host))

	if c, err := r.Cookie(cookies.PricingSession); err == nil && c.Value != "" {
		h.svc.Logout(r.Context(), c.Value)
	}

	response.OK(w)
}

func remainingMinutes(expiresAt time.Time) int {
	m := int(time.Until(expiresAt).Minutes())
	if m < 0 {
		return 0
	}
	return m
}
