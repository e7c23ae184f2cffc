package service

import (
	"context"
	"fmt"
	"time"

	"blackhole/internal/visitor/models"
	"blackhole/internal/visitor/store"
)

// Session is the per-load reconcile state. UI state is always derived from
// the three flags, never stored.
type Session struct {
	VisitorID     string
	CreatedAt     time.Time
	Minted        bool
	Expired       bool
	TokenVerified bool
	ValidToken    bool
	Loading       bool
	// CheckErr keeps the swallowed check failure for logging and tests.
	CheckErr error
}

func (s *Session) State() models.UIState {
	return models.DeriveState(s.TokenVerified, s.ValidToken, s.Loading)
}

func readIdentity(ctx context.Context, storage store.Storage) (models.VisitorIdentity, error) {
	id, _, err := storage.Get(ctx, models.KeyUserID)
	if err != nil {
		return models.VisitorIdentity{}, fmt.Errorf("read visitor id: %w", err)
	}
	rawCreatedAt, _, err := storage.Get(ctx, models.KeyCreatedAt)
	if err != nil {
		return models.VisitorIdentity{}, fmt.Errorf("read visitor created at: %w", err)
	}
	ident := models.VisitorIdentity{ID: id}
	if createdAt, ok := models.ParseMillis(rawCreatedAt); ok {
		ident.CreatedAt = createdAt
		ident.HasCreatedAt = true
	}
	return ident, nil
}

func readLocalToken(ctx context.Context, storage store.Storage) (models.LocalValidToken, error) {
	flag, _, err := storage.Get(ctx, models.KeyValidToken)
	if err != nil {
		return models.LocalValidToken{}, fmt.Errorf("read valid token: %w", err)
	}
	expiration, _, err := storage.Get(ctx, models.KeyValidTokenExpiration)
	if err != nil {
		return models.LocalValidToken{}, fmt.Errorf("read valid token expiration: %w", err)
	}
	return models.ParseLocalValidToken(flag, expiration), nil
}
