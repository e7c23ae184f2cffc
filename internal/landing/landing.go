package landing

import (
	"log/slog"

	"blackhole/internal/landing/handler"
	"blackhole/internal/landing/service"
	"blackhole/internal/visitor/models"
)

// Service exposes the visitor session reconciler.
type Service = service.Service

// Handler wires the landing page and session endpoint to the reconciler.
type Handler = handler.Handler

// NewService constructs the reconciler around a verification checker.
func NewService(checker service.Checker, opts ...service.Option) (*Service, error) {
	return service.New(checker, opts...)
}

// NewHandler constructs the HTTP handler for the landing routes.
func NewHandler(s *Service, storage handler.StorageFactory, targets models.NavigationTargets, logger *slog.Logger) *Handler {
	return handler.New(s, storage, targets, logger)
}
