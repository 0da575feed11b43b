package middleware

import (
	"github.com/MrEthical07/goLMS/permission"
	"github.com/MrEthical07/goLMS/session"
)

// Outcome is the result of a route check.
type Outcome uint8

const (
	// Allow renders the route.
	Allow Outcome = iota
	// Wait defers the decision until session restoration finishes.
	Wait
	// RedirectLogin sends an unauthenticated visitor to the login page.
	RedirectLogin
	// RedirectAway sends an authenticated user without access elsewhere.
	RedirectAway
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect_login"
	case RedirectAway:
		return "redirect_away"
	default:
		return "unknown"
	}
}

// Requirement is what a route demands beyond an authenticated session.
// Roles match when the user holds any of them; Action and Resource, when
// set, must be granted by the gate. Both conditions apply when both are set.
type Requirement struct {
	Roles    []string
	Action   string
	Resource string
}

// Decide evaluates req against a session snapshot. It is pure and performs
// no I/O.
func Decide(s session.State, gate *permission.Gate, req Requirement) Outcome {
	if s.IsLoading {
		return Wait
	}
	if !s.IsAuthenticated {
		return RedirectLogin
	}

	subject := permission.Subject{Authenticated: true, Roles: s.Roles()}
	if len(req.Roles) > 0 && !gate.HasRole(subject, req.Roles...) {
		return RedirectAway
	}
	if req.Action != "" || req.Resource != "" {
		if !gate.Can(subject, req.Action, req.Resource) {
			return RedirectAway
		}
	}
	return Allow
}
