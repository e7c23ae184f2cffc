// Package verification talks to the external check service that owns the
// server-side verification record of a visitor.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blackhole/internal/visitor/models"
	"blackhole/pkg/platform/circuit"
)

const (
	tracerName = "blackhole/internal/verification"
	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 64 << 10
)

// HTTPClient calls GET {baseURL}/check/{visitorId}. It never retries.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *circuit.Breaker
	tracer  trace.Tracer
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying client. Its transport is used as-is.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.http = c
		}
	}
}

// WithTimeout bounds each call. Zero keeps the client default.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		h.timeout = d
	}
}

// WithBreaker skips calls while the breaker is open. A nil breaker disables it.
func WithBreaker(b *circuit.Breaker) Option {
	return func(h *HTTPClient) {
		h.breaker = b
	}
}

// NewHTTPClient builds a client rooted at baseURL, e.g.
// "https://example.org/.netlify/functions".
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse check base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("check base url must be http or https, got %q", baseURL)
	}
	h := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Check fetches the remote record for visitorID. Absent or non-boolean fields
// decode as false; any failure is returned as a *CheckError.
func (h *HTTPClient) Check(ctx context.Context, visitorID string) (rec models.RemoteVerificationRecord, err error) {
	ctx, span := h.tracer.Start(ctx, "verification.Check",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("visitor.id", visitorID)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(GetCategory(err)))
		} else {
			span.SetAttributes(
				attribute.Bool("verification.exists", rec.Exists),
				attribute.Bool("verification.token_verified", rec.TokenVerified),
			)
		}
		span.End()
	}()

	if h.breaker != nil && !h.breaker.Allow() {
		return models.RemoteVerificationRecord{}, newCheckError(ErrorCircuitOpen, visitorID, nil)
	}

	rec, err = h.do(ctx, visitorID)
	if h.breaker != nil {
		if upstreamFault(err) {
			h.breaker.RecordFailure()
		} else {
			h.breaker.RecordSuccess()
		}
	}
	return rec, err
}

// upstreamFault reports whether err says the check service itself is down.
// Answers about one visitor (4xx, odd bodies) and caller cancellation do not
// count against other visitors.
func upstreamFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var ce *CheckError
	if !errors.As(err, &ce) {
		return true
	}
	switch ce.Category {
	case ErrorTransport, ErrorTimeout:
		return true
	case ErrorBadStatus:
		return ce.StatusCode >= 500
	default:
		return false
	}
}

func (h *HTTPClient) do(ctx context.Context, visitorID string) (models.RemoteVerificationRecord, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	endpoint := h.baseURL + "/check/" + url.PathEscape(visitorID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.RemoteVerificationRecord{}, newCheckError(ErrorTransport, visitorID, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return models.RemoteVerificationRecord{}, newCheckError(classifyTransport(err), visitorID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.RemoteVerificationRecord{}, newCheckError(classifyTransport(err), visitorID, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ce := newCheckError(ErrorBadStatus, visitorID, nil)
		ce.StatusCode = resp.StatusCode
		return models.RemoteVerificationRecord{}, ce
	}

	rec, err := DecodeRecord(body)
	if err != nil {
		return models.RemoteVerificationRecord{}, newCheckError(ErrorBadBody, visitorID, err)
	}
	return rec, nil
}

// DecodeRecord parses a check response body. The body must be a JSON object;
// its fields only count when they are the boolean true.
func DecodeRecord(body []byte) (models.RemoteVerificationRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil {
		return models.RemoteVerificationRecord{}, fmt.Errorf("decode check response: %w", err)
	}
	if fields == nil {
		return models.RemoteVerificationRecord{}, errors.New("decode check response: null body")
	}
	return models.RemoteVerificationRecord{
		Exists:        isTrue(fields["exists"]),
		TokenVerified: isTrue(fields["tokenVerified"]),
	}, nil
}

func isTrue(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func classifyTransport(err error) ErrorCategory {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTimeout
	}
	return ErrorTransport
}
