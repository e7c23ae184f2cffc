package models

import "time"

// LocalValidToken is the short-lived flag written by the verification flow.
// This service only reads it.
type LocalValidToken struct {
	Present   bool
	ExpiresAt time.Time
	// HasExpiry is false when validTokenExpiration is missing or unparsable.
	HasExpiry bool
}

// ParseLocalValidToken builds a token from the raw stored strings.
func ParseLocalValidToken(flag, expiration string) LocalValidToken {
	tok := LocalValidToken{Present: flag == "true"}
	if exp, ok := ParseMillis(expiration); ok {
		tok.ExpiresAt = exp
		tok.HasExpiry = true
	}
	return tok
}

// Valid is true only when the flag is set and now is before the expiry.
func (t LocalValidToken) Valid(now time.Time) bool {
	return t.Present && t.HasExpiry && now.Before(t.ExpiresAt)
}

// RemoteVerificationRecord is the check service's view of a visitor.
type RemoteVerificationRecord struct {
	Exists        bool `json:"exists"`
	TokenVerified bool `json:"tokenVerified"`
}

// Verified is true when the record exists and its token has been verified.
func (r RemoteVerificationRecord) Verified() bool {
	return r.Exists && r.TokenVerified
}
