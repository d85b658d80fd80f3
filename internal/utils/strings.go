package utils

import (
	"regexp"
	"strings"
)

// RFC 5321 address shape; length is capped separately.
var emailRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// NormalizeEmail normalizes email addresses (lowercase and trim).
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail validates a normalized address.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	return emailRe.MatchString(email)
}

// MaskEmail renders an address safe for logs: first three characters of the
// local part, everything else dropped.
func MaskEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***@***"
}
