// Package handler serves the landing page and its JSON twin.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blackhole/internal/landing/service"
	"blackhole/internal/visitor/models"
	"blackhole/internal/visitor/store"
	"blackhole/pkg/platform/httputil"
	"blackhole/pkg/platform/middleware/device"
	"blackhole/pkg/platform/sentinel"
)

// Reconciler is the subset of the landing service used over HTTP.
type Reconciler interface {
	Begin(ctx context.Context, storage store.Storage) (*service.Session, error)
	Complete(ctx context.Context, sess *service.Session, storage store.Storage) error
	Reconcile(ctx context.Context, storage store.Storage) (*service.Session, error)
}

type Handler struct {
	svc     Reconciler
	storage StorageFactory
	targets models.NavigationTargets
	logger  *slog.Logger
}

func New(svc Reconciler, storage StorageFactory, targets models.NavigationTargets, logger *slog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		storage: storage,
		targets: targets,
		logger:  logger,
	}
}

// Register wires the landing routes onto r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleLanding)
	r.Get("/api/session", h.HandleSession)
}

// sessionResponse is the JSON view of a reconciled visit.
type sessionResponse struct {
	VisitorID     string             `json:"visitorId"`
	TokenVerified bool               `json:"tokenVerified"`
	ValidToken    bool               `json:"validToken"`
	Loading       bool               `json:"loading"`
	State         models.UIState     `json:"state"`
	Action        *models.Navigation `json:"action,omitempty"`
}

// HandleLanding renders the page shell in the loading state, flushes it, runs
// the remote check, then appends the resolved block. Identity cookies are
// written before the first byte of the body.
func (h *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storage, sess, err := h.begin(w, r)
	if err != nil {
		h.logger.ErrorContext(ctx, "landing identity resolution failed", "error", err)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = renderUnavailable(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := renderShell(w, newLandingView(sess, h.targets)); err != nil {
		h.logger.ErrorContext(ctx, "failed to render landing shell", "visitor_id", sess.VisitorID, "error", err)
		return
	}
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.DebugContext(ctx, "landing flush failed", "error", err)
	}

	if err := h.svc.Complete(ctx, sess, storage); err != nil {
		h.logger.ErrorContext(ctx, "landing reconcile failed", "visitor_id", sess.VisitorID, "error", err)
	}
	if err := renderResolved(w, newLandingView(sess, h.targets)); err != nil {
		h.logger.ErrorContext(ctx, "failed to render landing state", "visitor_id", sess.VisitorID, "error", err)
	}
}

// HandleSession runs the full reconcile and answers with the flags and state.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storage, err := h.storage(w, r)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open visitor storage", "error", err)
		httputil.WriteError(w, fmt.Errorf("open visitor storage: %w: %w", sentinel.ErrUnavailable, err))
		return
	}
	sess, err := h.svc.Reconcile(ctx, storage)
	if err != nil {
		h.logger.ErrorContext(ctx, "session reconcile failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	resp := sessionResponse{
		VisitorID:     sess.VisitorID,
		TokenVerified: sess.TokenVerified,
		ValidToken:    sess.ValidToken,
		Loading:       sess.Loading,
		State:         sess.State(),
	}
	if nav, ok := h.targets.NavigationFor(resp.State); ok {
		resp.Action = &nav
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) (store.Storage, *service.Session, error) {
	ctx := r.Context()
	storage, err := h.storage(w, r)
	if err != nil {
		return nil, nil, fmt.Errorf("open visitor storage: %w", err)
	}
	sess, err := h.svc.Begin(ctx, storage)
	if err != nil {
		return nil, nil, err
	}
	h.logger.InfoContext(ctx, "landing visit",
		"visitor_id", sess.VisitorID,
		"minted", sess.Minted,
		"expired", sess.Expired,
		"device", device.GetLabel(ctx),
	)
	return storage, sess, nil
}
