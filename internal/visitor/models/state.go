package models

import "fmt"

// UIState is the landing page state derived from the reconcile flags.
type UIState int

const (
	StateLoading UIState = iota
	StateNeedsVerification
	StateNeedsFinalization
	StateReadyToVisit
)

func (s UIState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateNeedsVerification:
		return "needs_verification"
	case StateNeedsFinalization:
		return "needs_finalization"
	case StateReadyToVisit:
		return "ready_to_visit"
	default:
		return fmt.Sprintf("ui_state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads and log attributes.
func (s UIState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *UIState) UnmarshalText(text []byte) error {
	for _, candidate := range []UIState{StateLoading, StateNeedsVerification, StateNeedsFinalization, StateReadyToVisit} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown ui state %q", text)
}

// DeriveState maps the three reconcile flags to a UIState. Once the remote
// check reports a verified token, loading no longer matters.
func DeriveState(tokenVerified, validToken, loading bool) UIState {
	switch {
	case tokenVerified && validToken:
		return StateReadyToVisit
	case tokenVerified:
		return StateNeedsFinalization
	case loading:
		return StateLoading
	default:
		return StateNeedsVerification
	}
}

// NavigationTargets are the static pages a visitor can be sent to.
type NavigationTargets struct {
	MainApp      string
	Finalization string
	Verification string
}

// Navigation is the single action offered for a state.
type Navigation struct {
	Label   string `json:"label"`
	Target  string `json:"target"`
	Message string `json:"message,omitempty"`
}

// NavigationFor returns the action for s. Loading offers none.
func (t NavigationTargets) NavigationFor(s UIState) (Navigation, bool) {
	switch s {
	case StateReadyToVisit:
		return Navigation{Label: "Visit HomePage", Target: t.MainApp}, true
	case StateNeedsFinalization:
		return Navigation{
			Label:   "Set Token",
			Target:  t.Finalization,
			Message: "Token is verified in DB. Please finalize it...",
		}, true
	case StateNeedsVerification:
		return Navigation{
			Label:   "Go to Verify Page",
			Target:  t.Verification,
			Message: "Token not verified. Please verify first.",
		}, true
	case StateLoading:
		return Navigation{}, false
	default:
		return Navigation{}, false
	}
}
