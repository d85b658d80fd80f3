// Package cookies builds and clears the session cookies for both gated
// flows. The Domain attribute is picked per request so one deployment can
// serve the site's sibling hostnames with the same code.
package cookies

import (
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	PricingSession = "bb_pricing_session"
	BookingSession = "bb_booking_session"
)

// Policy decides cookie attributes from deployment configuration.
type Policy struct {
	// Production adds Secure and a Domain attribute.
	Production bool
	// Domains are the registrable domains the site is served under.
	// The longest suffix matching the request host wins.
	Domains []string
}

// Session builds the cookie carrying a freshly minted session id.
func (p Policy) Session(name, sessionID, host string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	p.applyProduction(c, host)
	return c
}

// Clear builds the expiring cookie that removes a session from the
// browser. Attributes must match how the cookie was set.
func (p Policy) Clear(name, host string) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	p.applyProduction(c, host)
	return c
}

func (p Policy) applyProduction(c *http.Cookie, host string) {
	if !p.Production {
		return
	}
	c.Secure = true
	if domain := p.domainFor(host); domain != "" {
		// Leading dot so the cookie works across subdomains.
		c.Domain = "." + domain
	}
}

func (p Policy) domainFor(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	var best string
	for _, d := range p.Domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			if len(d) > len(best) {
				best = d
			}
		}
	}
	return best
}
