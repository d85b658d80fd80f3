package mailer

import (
	"time"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

// DevMailer logs instead of sending. The raw link appears here and only
// here — never in production logs.
type DevMailer struct{}

func NewDevMailer() *DevMailer { return &DevMailer{} }

func (d *DevMailer) SendPricingLink(toEmail, firstName, link string, expiresIn time.Duration) error {
	logger.Info("[DEV MAIL] pricing access link",
		"to", toEmail,
		"link", link,
		"expires_in", expiresIn.String(),
	)
	return nil
}

func (d *DevMailer) SendBookingLink(toEmail, firstName string, bookingType domain.BookingType, link string, expiresIn time.Duration) error {
	logger.Info("[DEV MAIL] booking access link",
		"to", toEmail,
		"booking_type", string(bookingType),
		"link", link,
		"expires_in", expiresIn.String(),
	)
	return nil
}
