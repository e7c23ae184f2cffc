package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Keys in the visitor's persistent key/value storage. The names match what the
// verification pages read and write, so they must not be prefixed or renamed.
const (
	KeyUserID               = "userId"
	KeyCreatedAt            = "createdAt"
	KeyValidToken           = "validToken"
	KeyValidTokenExpiration = "validTokenExpiration"
)

// DefaultIdentityMaxAge is how long a minted visitor identifier stays in use.
const DefaultIdentityMaxAge = 24 * time.Hour

// VisitorIdentity is the locally minted, unauthenticated identifier of a browser.
type VisitorIdentity struct {
	ID        string
	CreatedAt time.Time
	// HasCreatedAt is false when an id was found without a parsable createdAt.
	HasCreatedAt bool
}

// IsExpired reports whether the identity is strictly older than maxAge.
// Identities without a known creation time never expire.
func (v VisitorIdentity) IsExpired(now time.Time, maxAge time.Duration) bool {
	if v.ID == "" || !v.HasCreatedAt {
		return false
	}
	return now.Sub(v.CreatedAt) > maxAge
}

// NewVisitorIdentity mints a random UUID v4 identity created at now.
func NewVisitorIdentity(now time.Time) (VisitorIdentity, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return VisitorIdentity{}, err
	}
	return VisitorIdentity{ID: id.String(), CreatedAt: now, HasCreatedAt: true}, nil
}

// IsVisitorID reports whether s has the UUID v4 layout: version nibble 4 and
// variant nibble in {8,9,a,b}.
func IsVisitorID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}

// FormatMillis encodes t as decimal Unix milliseconds.
func FormatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// ParseMillis decodes decimal Unix milliseconds the way a lenient integer
// parse would: leading whitespace is skipped, trailing garbage is ignored
// ("1700000000000abc" parses), and values beyond int64 clamp to the far
// future or past instead of failing.
func ParseMillis(s string) (time.Time, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	// ParseInt returns the clamped bound alongside ErrRange.
	ms, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
