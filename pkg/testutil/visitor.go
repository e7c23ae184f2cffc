package testutil

import (
	"net/http"
	"time"

	"blackhole/internal/visitor/models"
	"blackhole/pkg/requestcontext"
)

// WithVisitor attaches the identity cookies a returning browser would send.
func WithVisitor(req *http.Request, visitorID string, createdAt time.Time) *http.Request {
	req.AddCookie(&http.Cookie{Name: models.KeyUserID, Value: visitorID})
	req.AddCookie(&http.Cookie{Name: models.KeyCreatedAt, Value: models.FormatMillis(createdAt)})
	return req
}

// WithValidToken attaches the local token flag with the given expiry.
func WithValidToken(req *http.Request, expiresAt time.Time) *http.Request {
	req.AddCookie(&http.Cookie{Name: models.KeyValidToken, Value: "true"})
	req.AddCookie(&http.Cookie{Name: models.KeyValidTokenExpiration, Value: models.FormatMillis(expiresAt)})
	return req
}

// WithRequestTime pins the request clock, as the requesttime middleware would.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
