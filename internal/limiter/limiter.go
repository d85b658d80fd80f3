// Package limiter bounds how often an identity may request an access link.
// It combines a durable per-email counter (rows in the magic-link table)
// with a best-effort per-IP burst guard. The guard is an injected interface
// with its own clock so the in-process implementation can be swapped for a
// shared store without touching callers.
package limiter

import (
	"context"
	"time"

	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

type Clock func() time.Time

// BurstGuard answers whether a source address may proceed, recording the
// attempt as a side effect. Implementations are allowed to lose state
// (process restart, shared-store outage); this is accepted, not a bug.
type BurstGuard interface {
	Allow(ctx context.Context, key string) bool
}

// EmailCounter counts link issuances for an address within a window.
// Implemented by the magic-link repository.
type EmailCounter interface {
	CountRecentMagicLinks(ctx context.Context, email string, since time.Time) (int, error)
}

type Config struct {
	Window         time.Duration
	EmailPerWindow int
	IPPerWindow    int
}

// Decision reports the limiter outcome. Denials never reach the caller's
// response body; handlers absorb them into a success shape.
type Decision struct {
	Allowed bool
	Reason  string
}

type Limiter struct {
	emails EmailCounter
	guard  BurstGuard
	cfg    Config
	now    Clock
}

func New(emails EmailCounter, guard BurstGuard, cfg Config, now Clock) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{emails: emails, guard: guard, cfg: cfg, now: now}
}

// CheckAndRecord gates one request-access attempt. The durable email count
// fails open on store errors, consistent with the rest of the limiter being
// an abuse bound rather than a correctness requirement.
func (l *Limiter) CheckAndRecord(ctx context.Context, email, ip string) Decision {
	if ip != "" && l.guard != nil && !l.guard.Allow(ctx, ip) {
		return Decision{Allowed: false, Reason: "ip"}
	}

	since := l.now().Add(-l.cfg.Window)
	count, err := l.emails.CountRecentMagicLinks(ctx, email, since)
	if err != nil {
		logger.WarnContext(ctx, "rate limit count failed, allowing request", "error", err)
		return Decision{Allowed: true}
	}
	if count >= l.cfg.EmailPerWindow {
		return Decision{Allowed: false, Reason: "email"}
	}

	return Decision{Allowed: true}
}
