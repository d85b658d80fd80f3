package mailer

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sctbrt/bertrandbrands.com/internal/domain"
)

const signoff = "Bertrand Group | Brand & Web Systems · Sudbury, Ontario"

type message struct {
	Subject string
	Text    string
	HTML    string
}

func greetingFor(firstName string) string {
	if firstName = strings.TrimSpace(firstName); firstName != "" {
		return "Hi " + firstName + ","
	}
	return "Hi,"
}

func describeTTL(d time.Duration) string {
	if d >= time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

func pricingMessage(firstName, link string, expiresIn time.Duration) message {
	greeting := greetingFor(firstName)
	ttl := describeTTL(expiresIn)

	text := fmt.Sprintf(`%s

Here's your link to view pricing for our advanced services. Pricing varies by scope, so this gives you a starting point before we discuss your specific needs.

View Pricing: %s

This link expires in %s and can only be used once.

--
%s`, greeting, link, ttl, signoff)

	htmlBody := fmt.Sprintf(`<p>%s</p>
<p>Here's your link to view pricing for our advanced services. Pricing varies by scope, so this gives you a starting point before we discuss your specific needs.</p>
<p><a href="%s">View Pricing</a></p>
<p>This link expires in %s and can only be used once.</p>
<p>%s</p>`, html.EscapeString(greeting), link, ttl, html.EscapeString(signoff))

	return message{
		Subject: "Your pricing access link",
		Text:    text,
		HTML:    htmlBody,
	}
}

func bookingMessage(firstName string, bookingType domain.BookingType, link string, expiresIn time.Duration) message {
	greeting := greetingFor(firstName)
	label := bookingType.Label()
	ttl := describeTTL(expiresIn)

	text := fmt.Sprintf(`%s

Your %s call is ready to be scheduled. Use the link below to pick a time that works for you.

Schedule Your Call: %s

This link expires in %s and can only be used once. If it expires, just let us know and we'll send a new one.

--
%s`, greeting, label, link, ttl, signoff)

	htmlBody := fmt.Sprintf(`<p>%s</p>
<p>Your <strong>%s</strong> call is ready to be scheduled. Use the link below to pick a time that works for you.</p>
<p><a href="%s">Schedule Your Call</a></p>
<p>This link expires in %s and can only be used once. If it expires, just let us know and we'll send a new one.</p>
<p>%s</p>`, html.EscapeString(greeting), html.EscapeString(label), link, ttl, html.EscapeString(signoff))

	return message{
		Subject: fmt.Sprintf("Your %s booking link", label),
		Text:    text,
		HTML:    htmlBody,
	}
}
