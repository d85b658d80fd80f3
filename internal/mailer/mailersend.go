package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
)

// MailerSendMailer sends through the MailerSend API, the production path.
type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendMailer(apiKey, fromName, fromEmail string) (*MailerSendMailer, error) {
	if apiKey == "" || fromEmail == "" {
		return nil, errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAIL_FROM_EMAIL)")
	}
	return &MailerSendMailer{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: fromName, Email: fromEmail},
	}, nil
}

func (m *MailerSendMailer) SendPricingLink(toEmail, firstName, link string, expiresIn time.Duration) error {
	return m.send(toEmail, pricingMessage(firstName, link, expiresIn))
}

func (m *MailerSendMailer) SendBookingLink(toEmail, firstName string, bookingType domain.BookingType, link string, expiresIn time.Duration) error {
	return m.send(toEmail, bookingMessage(firstName, bookingType, link, expiresIn))
}

func (m *MailerSendMailer) send(toEmail string, msg message) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	email := m.client.Email.NewMessage()
	email.SetFrom(m.from)
	email.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	email.SetSubject(msg.Subject)
	email.SetText(msg.Text)
	email.SetHTML(msg.HTML)

	res, err := m.client.Email.Send(ctx, email)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("mailersend returned status %d", res.StatusCode)
	}
	return nil
}
