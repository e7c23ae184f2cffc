// Package service implements the visitor session reconciler behind the
// landing page: resolve the local identity, ask the check service about it,
// combine the answer with the local token, and derive the UI state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blackhole/internal/landing/events"
	"blackhole/internal/landing/metrics"
	"blackhole/internal/verification"
	"blackhole/internal/visitor/models"
	"blackhole/internal/visitor/store"
	"blackhole/pkg/platform/sentinel"
	"blackhole/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Checker,Publisher

// Checker fetches the remote verification record of a visitor.
type Checker interface {
	Check(ctx context.Context, visitorID string) (models.RemoteVerificationRecord, error)
}

// Publisher is an alias to the visit event sink.
type Publisher = events.Publisher

// ErrSessionCompleted is returned when Complete runs twice on one session.
var ErrSessionCompleted = fmt.Errorf("session already completed: %w", sentinel.ErrInvalidState)

type Service struct {
	checker   Checker
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	maxAge    time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithMaxAge overrides how long an identity stays in use.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

func New(checker Checker, opts ...Option) (*Service, error) {
	if checker == nil {
		return nil, errors.New("verification checker is required")
	}
	svc := &Service{
		checker:   checker,
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
		maxAge:    models.DefaultIdentityMaxAge,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Reconcile runs Begin and Complete back to back.
func (s *Service) Reconcile(ctx context.Context, storage store.Storage) (*Session, error) {
	sess, err := s.Begin(ctx, storage)
	if err != nil {
		return nil, err
	}
	if err := s.Complete(ctx, sess, storage); err != nil {
		return nil, err
	}
	return sess, nil
}

// Begin resolves the visitor identity: an identity older than the max age
// wipes the whole storage, and a missing id is minted and persisted. The
// returned session is loading. Only storage failures are returned.
func (s *Service) Begin(ctx context.Context, storage store.Storage) (*Session, error) {
	now := requestcontext.Now(ctx)

	ident, err := readIdentity(ctx, storage)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "visitor storage read", "visitor_id", ident.ID, "has_created_at", ident.HasCreatedAt)

	sess := &Session{Loading: true}

	if ident.IsExpired(now, s.maxAge) {
		// Clear wipes every key, including the valid token and anything
		// other pages stored. Narrowing it would change what visitors keep.
		if err := storage.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear expired visitor storage: %w", err)
		}
		s.logger.WarnContext(ctx, "visitor id expired, storage cleared",
			"visitor_id", ident.ID,
			"age", now.Sub(ident.CreatedAt).String(),
		)
		s.emit(ctx, events.Event{Type: events.EventIdentityExpired, VisitorID: ident.ID})
		if s.metrics != nil {
			s.metrics.IncrementIdentitiesExpired()
		}
		sess.Expired = true
		ident = models.VisitorIdentity{}
	}

	if ident.ID == "" {
		ident, err = models.NewVisitorIdentity(now)
		if err != nil {
			return nil, fmt.Errorf("mint visitor id: %w", err)
		}
		if err := storage.Set(ctx, models.KeyUserID, ident.ID); err != nil {
			return nil, fmt.Errorf("persist visitor id: %w", err)
		}
		if err := storage.Set(ctx, models.KeyCreatedAt, models.FormatMillis(ident.CreatedAt)); err != nil {
			return nil, fmt.Errorf("persist visitor created at: %w", err)
		}
		s.logger.InfoContext(ctx, "visitor id minted", "visitor_id", ident.ID)
		s.emit(ctx, events.Event{Type: events.EventIdentityMinted, VisitorID: ident.ID})
		if s.metrics != nil {
			s.metrics.IncrementIdentitiesMinted()
		}
		sess.Minted = true
	}

	sess.VisitorID = ident.ID
	sess.CreatedAt = ident.CreatedAt
	return sess, nil
}

// Complete issues the single remote check, reads the local token, and clears
// loading. Check failures leave tokenVerified false and are never returned.
func (s *Service) Complete(ctx context.Context, sess *Session, storage store.Storage) error {
	if sess == nil || sess.VisitorID == "" {
		return fmt.Errorf("complete without a resolved visitor: %w", sentinel.ErrInvalidState)
	}
	if !sess.Loading {
		return ErrSessionCompleted
	}
	defer s.finish(ctx, sess)

	start := time.Now()
	rec, err := s.checker.Check(ctx, sess.VisitorID)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		category := verification.GetCategory(err)
		sess.CheckErr = err
		s.logger.WarnContext(ctx, "verification check failed",
			"visitor_id", sess.VisitorID,
			"category", category,
			"error", err,
		)
		s.emit(ctx, events.Event{Type: events.EventCheckFailed, VisitorID: sess.VisitorID, Reason: string(category)})
		if s.metrics != nil {
			s.metrics.ObserveCheck(string(category), elapsed)
		}
		return nil
	}
	if s.metrics != nil {
		s.metrics.ObserveCheck("ok", elapsed)
	}

	sess.TokenVerified = rec.Verified()
	s.logger.DebugContext(ctx, "verification check answered",
		"visitor_id", sess.VisitorID,
		"exists", rec.Exists,
		"token_verified", sess.TokenVerified,
	)

	token, err := readLocalToken(ctx, storage)
	if err != nil {
		s.logger.WarnContext(ctx, "local token unreadable, treating as absent", "visitor_id", sess.VisitorID, "error", err)
		return nil
	}
	sess.ValidToken = token.Valid(requestcontext.Now(ctx))
	s.logger.DebugContext(ctx, "local token checked",
		"visitor_id", sess.VisitorID,
		"present", token.Present,
		"valid", sess.ValidToken,
	)
	return nil
}

// finish clears loading on both the success and failure paths.
func (s *Service) finish(ctx context.Context, sess *Session) {
	sess.Loading = false
	state := sess.State()
	s.logger.InfoContext(ctx, "landing state resolved",
		"visitor_id", sess.VisitorID,
		"state", state,
		"token_verified", sess.TokenVerified,
		"valid_token", sess.ValidToken,
	)
	s.emit(ctx, events.Event{Type: events.EventStateResolved, VisitorID: sess.VisitorID, State: state.String()})
	if s.metrics != nil {
		s.metrics.IncrementStateResolved(state.String())
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	s.publisher.Publish(ctx, event)
}
