package handler

import (
	"embed"
	"html/template"
	"io"

	"blackhole/internal/landing/service"
	"blackhole/internal/visitor/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type landingView struct {
	VisitorID    string
	State        models.UIState
	Loading      bool
	Nav          *models.Navigation
	ButtonClass  string
	MessageClass string
}

func newLandingView(sess *service.Session, targets models.NavigationTargets) landingView {
	state := sess.State()
	view := landingView{
		VisitorID: sess.VisitorID,
		State:     state,
		Loading:   state == models.StateLoading,
	}
	if nav, ok := targets.NavigationFor(state); ok {
		view.Nav = &nav
	}
	switch state {
	case models.StateReadyToVisit:
		view.ButtonClass = "visitButton"
	case models.StateNeedsFinalization:
		view.ButtonClass = "verifyButton"
	case models.StateNeedsVerification:
		view.ButtonClass = "verifyButton"
		view.MessageClass = "warning-text"
	case models.StateLoading:
	}
	return view
}

func renderShell(w io.Writer, view landingView) error {
	return pageTemplates.ExecuteTemplate(w, "shell", view)
}

func renderResolved(w io.Writer, view landingView) error {
	return pageTemplates.ExecuteTemplate(w, "resolved", view)
}

func renderUnavailable(w io.Writer) error {
	return pageTemplates.ExecuteTemplate(w, "unavailable", nil)
}
