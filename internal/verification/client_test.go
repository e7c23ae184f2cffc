package verification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"blackhole/pkg/platform/circuit"
)

type HTTPClientSuite struct {
	suite.Suite
	ctx context.Context
}

func TestHTTPClientSuite(t *testing.T) {
	suite.Run(t, new(HTTPClientSuite))
}

func (s *HTTPClientSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *HTTPClientSuite) newServer(status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	var calls atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		path.Store(r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	s.T().Cleanup(srv.Close)
	return srv, &calls, &path
}

func (s *HTTPClientSuite) TestCheckDecodesRecord() {
	srv, calls, path := s.newServer(http.StatusOK, `{"exists":true,"tokenVerified":true}`)
	client, err := NewHTTPClient(srv.URL + "/.netlify/functions/")
	s.Require().NoError(err)

	rec, err := client.Check(s.ctx, "3f2b8c1e-9d4a-4b7c-a1e2-0f9e8d7c6b5a")
	s.Require().NoError(err)
	s.True(rec.Exists)
	s.True(rec.TokenVerified)
	s.True(rec.Verified())
	s.Equal(int32(1), calls.Load())
	s.Equal("/.netlify/functions/check/3f2b8c1e-9d4a-4b7c-a1e2-0f9e8d7c6b5a", path.Load())
}

func (s *HTTPClientSuite) TestCheckEscapesVisitorID() {
	srv, _, path := s.newServer(http.StatusOK, `{}`)
	client, err := NewHTTPClient(srv.URL)
	s.Require().NoError(err)

	_, err = client.Check(s.ctx, "a/b c")
	s.Require().NoError(err)
	s.Equal("/check/a%2Fb%20c", path.Load())
}

func (s *HTTPClientSuite) TestCheckMissingFieldsDefaultToFalse() {
	srv, _, _ := s.newServer(http.StatusOK, `{}`)
	client, err := NewHTTPClient(srv.URL)
	s.Require().NoError(err)

	rec, err := client.Check(s.ctx, "visitor")
	s.Require().NoError(err)
	s.False(rec.Exists)
	s.False(rec.TokenVerified)
}

func (s *HTTPClientSuite) TestCheckFailures() {
	s.Run("non-2xx is a bad status", func() {
		srv, _, _ := s.newServer(http.StatusBadGateway, `{"exists":true,"tokenVerified":true}`)
		client, err := NewHTTPClient(srv.URL)
		s.Require().NoError(err)

		_, err = client.Check(s.ctx, "visitor")
		s.Require().Error(err)
		var ce *CheckError
		s.Require().True(errors.As(err, &ce))
		s.Equal(ErrorBadStatus, ce.Category)
		s.Equal(http.StatusBadGateway, ce.StatusCode)
		s.Contains(err.Error(), "status 502")
	})

	s.Run("malformed json is a bad body", func() {
		srv, _, _ := s.newServer(http.StatusOK, `<html>oops</html>`)
		client, err := NewHTTPClient(srv.URL)
		s.Require().NoError(err)

		_, err = client.Check(s.ctx, "visitor")
		s.Equal(ErrorBadBody, GetCategory(err))
	})

	s.Run("unreachable server is a transport error", func() {
		srv, _, _ := s.newServer(http.StatusOK, `{}`)
		url := srv.URL
		srv.Close()
		client, err := NewHTTPClient(url)
		s.Require().NoError(err)

		_, err = client.Check(s.ctx, "visitor")
		s.Equal(ErrorTransport, GetCategory(err))
	})

	s.Run("slow server is a timeout", func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		client, err := NewHTTPClient(srv.URL, WithTimeout(20*time.Millisecond))
		s.Require().NoError(err)

		_, err = client.Check(s.ctx, "visitor")
		s.Equal(ErrorTimeout, GetCategory(err))
	})
}

func (s *HTTPClientSuite) TestOpenBreakerSkipsCall() {
	srv, calls, _ := s.newServer(http.StatusInternalServerError, `{}`)
	breaker := circuit.New("check", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client, err := NewHTTPClient(srv.URL, WithBreaker(breaker))
	s.Require().NoError(err)

	for range 2 {
		_, err = client.Check(s.ctx, "visitor")
		s.Equal(ErrorBadStatus, GetCategory(err))
	}
	s.True(breaker.IsOpen())

	_, err = client.Check(s.ctx, "visitor")
	s.Equal(ErrorCircuitOpen, GetCategory(err))
	s.Equal(int32(2), calls.Load(), "open circuit must not reach the upstream")
}

func (s *HTTPClientSuite) TestVisitorAnswersNeverOpenBreaker() {
	verifiedID := "3f2b8c1e-9d4a-4b7c-a1e2-0f9e8d7c6b5a"
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.EscapedPath() {
		case "/check/" + verifiedID:
			_, _ = w.Write([]byte(`{"exists":true,"tokenVerified":true}`))
		case "/check/unknown":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`"not an object"`))
		}
	}))
	s.T().Cleanup(srv.Close)

	breaker := circuit.New("check", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	client, err := NewHTTPClient(srv.URL, WithBreaker(breaker))
	s.Require().NoError(err)

	for range 5 {
		_, err = client.Check(s.ctx, "other")
		s.Equal(ErrorBadBody, GetCategory(err))
		_, err = client.Check(s.ctx, "unknown")
		s.Equal(ErrorBadStatus, GetCategory(err))
	}
	s.False(breaker.IsOpen())

	rec, err := client.Check(s.ctx, verifiedID)
	s.Require().NoError(err)
	s.True(rec.Verified())
	s.Equal(int32(11), calls.Load(), "every visitor reaches the upstream")
}

func (s *HTTPClientSuite) TestCanceledCallerDoesNotOpenBreaker() {
	srv, calls, _ := s.newServer(http.StatusOK, `{}`)
	breaker := circuit.New("check", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	client, err := NewHTTPClient(srv.URL, WithBreaker(breaker))
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = client.Check(ctx, "visitor")
	s.Equal(ErrorTransport, GetCategory(err))
	s.False(breaker.IsOpen())

	_, err = client.Check(s.ctx, "visitor")
	s.NoError(err)
	s.Equal(int32(1), calls.Load())
}

func TestNewHTTPClientRejectsBadBaseURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.org")
	require.Error(t, err)

	_, err = NewHTTPClient("://nope")
	require.Error(t, err)
}

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		exists   bool
		verified bool
		wantErr  bool
	}{
		{name: "both true", body: `{"exists":true,"tokenVerified":true}`, exists: true, verified: true},
		{name: "exists only", body: `{"exists":true,"tokenVerified":false}`, exists: true},
		{name: "empty object", body: `{}`},
		{name: "string booleans are not true", body: `{"exists":"true","tokenVerified":"true"}`},
		{name: "null fields", body: `{"exists":null,"tokenVerified":null}`},
		{name: "extra fields ignored", body: ` {"exists":true,"tokenVerified":true,"other":1} `, exists: true, verified: true},
		{name: "array", body: `[]`, wantErr: true},
		{name: "null", body: `null`, wantErr: true},
		{name: "garbage", body: `nope`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exists, rec.Exists)
			assert.Equal(t, tt.verified, rec.TokenVerified)
		})
	}
}
