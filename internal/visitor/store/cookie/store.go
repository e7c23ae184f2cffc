// Package cookie stores visitor keys as plain browser cookies.
package cookie

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Options controls the attributes of written cookies.
type Options struct {
	Path   string
	Secure bool
	MaxAge time.Duration
}

// Store reads cookies from the incoming request and writes Set-Cookie headers
// on the response. Writes are visible to later reads on the same Store.
// All writes must happen before the response header is flushed.
type Store struct {
	w       http.ResponseWriter
	opts    Options
	values  map[string]string
	cleared bool
	// seen tracks every cookie name the browser currently holds so Clear can expire them.
	seen map[string]struct{}
}

// New builds a Store for one request/response pair.
func New(w http.ResponseWriter, r *http.Request, opts Options) *Store {
	if opts.Path == "" {
		opts.Path = "/"
	}
	s := &Store{
		w:      w,
		opts:   opts,
		values: make(map[string]string),
		seen:   make(map[string]struct{}),
	}
	for _, c := range r.Cookies() {
		if _, dup := s.values[c.Name]; dup {
			continue
		}
		v, err := url.QueryUnescape(c.Value)
		if err != nil {
			v = c.Value
		}
		s.values[c.Name] = v
		s.seen[c.Name] = struct{}{}
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.values[key] = value
	s.seen[key] = struct{}{}
	c := &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     s.opts.Path,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.opts.MaxAge > 0 {
		c.MaxAge = int(s.opts.MaxAge.Seconds())
	}
	s.replaceCookie(c)
	return nil
}

// Clear expires every cookie the browser sent plus everything written so far,
// including cookies owned by other pages on the same site.
func (s *Store) Clear(_ context.Context) error {
	for name := range s.seen {
		s.replaceCookie(&http.Cookie{
			Name:    name,
			Value:   "",
			Path:    s.opts.Path,
			Secure:  s.opts.Secure,
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}
	s.values = make(map[string]string)
	s.cleared = true
	return nil
}

// Cleared reports whether Clear ran on this Store.
func (s *Store) Cleared() bool {
	return s.cleared
}

// replaceCookie drops any earlier Set-Cookie for the same name so the browser
// sees only the final value.
func (s *Store) replaceCookie(c *http.Cookie) {
	h := s.w.Header()
	kept := h.Values("Set-Cookie")[:0:0]
	for _, line := range h.Values("Set-Cookie") {
		parsed, err := http.ParseSetCookie(line)
		if err == nil && parsed.Name == c.Name {
			continue
		}
		kept = append(kept, line)
	}
	h.Del("Set-Cookie")
	for _, line := range kept {
		h.Add("Set-Cookie", line)
	}
	if v := c.String(); v != "" {
		h.Add("Set-Cookie", v)
	}
}
