package handler

import (
	"net/http"

	"github.com/google/uuid"

	"blackhole/internal/visitor/store"
	"blackhole/internal/visitor/store/cookie"
)

// BagCookieName holds the opaque id of a server-side storage bag.
const BagCookieName = "bh_bag"

// StorageFactory opens the visitor's storage for one request. It may write
// cookies, so it must run before the response header is sent.
type StorageFactory func(w http.ResponseWriter, r *http.Request) (store.Storage, error)

// CookieStorage keeps the visitor keys in browser cookies.
func CookieStorage(opts cookie.Options) StorageFactory {
	return func(w http.ResponseWriter, r *http.Request) (store.Storage, error) {
		return cookie.New(w, r, opts), nil
	}
}

// BagStorage keeps the visitor keys server-side, in the bag named by the
// bh_bag cookie. A missing or malformed bag id gets a fresh bag.
func BagStorage(opener store.BagOpener, opts cookie.Options) StorageFactory {
	return func(w http.ResponseWriter, r *http.Request) (store.Storage, error) {
		if c, err := r.Cookie(BagCookieName); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				return opener.Open(id.String()), nil
			}
		}
		id, err := uuid.NewRandom()
		if err != nil {
			return nil, err
		}
		bag := &http.Cookie{
			Name:     BagCookieName,
			Value:    id.String(),
			Path:     "/",
			Secure:   opts.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		if opts.MaxAge > 0 {
			bag.MaxAge = int(opts.MaxAge.Seconds())
		}
		http.SetCookie(w, bag)
		return opener.Open(id.String()), nil
	}
}
