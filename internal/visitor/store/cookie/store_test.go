package cookie

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CookieStoreSuite struct {
	suite.Suite
	ctx context.Context
}

func TestCookieStoreSuite(t *testing.T) {
	suite.Run(t, new(CookieStoreSuite))
}

func (s *CookieStoreSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *CookieStoreSuite) responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func (s *CookieStoreSuite) TestGet() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "userId", Value: "abc"})
	rec := httptest.NewRecorder()
	store := New(rec, req, Options{})

	s.Run("present cookie is returned", func() {
		v, ok, err := store.Get(s.ctx, "userId")
		s.NoError(err)
		s.True(ok)
		s.Equal("abc", v)
	})

	s.Run("missing cookie reports absence", func() {
		v, ok, err := store.Get(s.ctx, "createdAt")
		s.NoError(err)
		s.False(ok)
		s.Empty(v)
	})
}

func (s *CookieStoreSuite) TestSetWritesCookieAndReadsBack() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	store := New(rec, req, Options{Secure: true, MaxAge: 48 * time.Hour})

	s.Require().NoError(store.Set(s.ctx, "userId", "first"))
	s.Require().NoError(store.Set(s.ctx, "userId", "second"))

	v, ok, err := store.Get(s.ctx, "userId")
	s.NoError(err)
	s.True(ok)
	s.Equal("second", v)

	s.Len(rec.Header().Values("Set-Cookie"), 1, "later writes replace earlier ones")
	c := s.responseCookies(rec)["userId"]
	s.Require().NotNil(c)
	s.Equal("second", c.Value)
	s.Equal("/", c.Path)
	s.True(c.Secure)
	s.Equal(int((48 * time.Hour).Seconds()), c.MaxAge)
}

func (s *CookieStoreSuite) TestClearExpiresEverything() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "userId", Value: "old"})
	req.AddCookie(&http.Cookie{Name: "validToken", Value: "true"})
	req.AddCookie(&http.Cookie{Name: "theme", Value: "dark"})
	rec := httptest.NewRecorder()
	store := New(rec, req, Options{})

	s.Require().NoError(store.Set(s.ctx, "createdAt", "1"))
	s.Require().NoError(store.Clear(s.ctx))
	s.True(store.Cleared())

	for _, key := range []string{"userId", "validToken", "theme", "createdAt"} {
		_, ok, err := store.Get(s.ctx, key)
		s.NoError(err)
		s.False(ok, "expected %s to be cleared", key)
	}

	cookies := s.responseCookies(rec)
	for _, key := range []string{"userId", "validToken", "theme", "createdAt"} {
		c := cookies[key]
		s.Require().NotNil(c, "expected expiring cookie for %s", key)
		s.Less(c.MaxAge, 0)
	}

	s.Require().NoError(store.Set(s.ctx, "userId", "new"))
	cookies = s.responseCookies(rec)
	s.Equal("new", cookies["userId"].Value)
	s.Less(cookies["theme"].MaxAge, 0)
}
