package domain

import (
	"regexp"

	"github.com/google/uuid"
)

// Session identifiers are canonical UUIDs and nothing else. The shape is
// checked before any store round-trip; everything non-conforming is treated
// as "no session", not as an error.
var sessionIDRe = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func ParseSessionID(s string) (uuid.UUID, bool) {
	if !sessionIDRe.MatchString(s) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
