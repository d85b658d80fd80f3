package mailer

import (
	"time"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
)

// Service delivers access links out-of-band. Delivery failure after the
// token row exists is logged, not surfaced; the requester sees the same
// response either way.
type Service interface {
	SendPricingLink(toEmail, firstName, link string, expiresIn time.Duration) error
	SendBookingLink(toEmail, firstName string, bookingType domain.BookingType, link string, expiresIn time.Duration) error
}
