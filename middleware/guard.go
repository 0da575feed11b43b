package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MrEthical07/goLMS/permission"
	"github.com/MrEthical07/goLMS/session"
)

// Source supplies the state a guard decides on.
type Source interface {
	Session() session.State
	Gate() *permission.Gate
}

type sessionContextKey struct{}

// SessionFromContext returns the session snapshot a guard admitted the
// request with.
func SessionFromContext(ctx context.Context) (session.State, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(session.State)
	return s, ok
}

type options struct {
	loginPath string
	awayPath  string
}

type Option func(*options)

// WithLoginPath sets where unauthenticated visitors are sent. Default "/login".
func WithLoginPath(path string) Option {
	return func(o *options) { o.loginPath = path }
}

// WithAwayPath sets where users without access are sent. An empty path
// answers 403 instead. Default "/".
func WithAwayPath(path string) Option {
	return func(o *options) { o.awayPath = path }
}

// Guard enforces req on every request. While the session is loading it
// answers 503 with Retry-After so the shell can poll.
func Guard(src Source, req Requirement, opts ...Option) func(http.Handler) http.Handler {
	o := options{loginPath: "/login", awayPath: "/"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				redirectLogin(w, r, o.loginPath)
				return
			}

			s := src.Session()
			switch Decide(s, src.Gate(), req) {
			case Allow:
				ctx := context.WithValue(r.Context(), sessionContextKey{}, s)
				next.ServeHTTP(w, r.WithContext(ctx))
			case Wait:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			case RedirectLogin:
				redirectLogin(w, r, o.loginPath)
			case RedirectAway:
				if o.awayPath == "" {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Redirect(w, r, o.awayPath, http.StatusSeeOther)
			}
		})
	}
}

// RequireSession admits any authenticated user.
func RequireSession(src Source, opts ...Option) func(http.Handler) http.Handler {
	return Guard(src, Requirement{}, opts...)
}

// RequireRole admits users holding at least one of roles.
func RequireRole(src Source, roles []string, opts ...Option) func(http.Handler) http.Handler {
	return Guard(src, Requirement{Roles: roles}, opts...)
}

// RequirePermission admits users the gate grants (action, resource).
func RequirePermission(src Source, action, resource string, opts ...Option) func(http.Handler) http.Handler {
	return Guard(src, Requirement{Action: action, Resource: resource}, opts...)
}

func redirectLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	target := loginPath
	if next := r.URL.RequestURI(); next != "" && next != loginPath {
		target += "?next=" + url.QueryEscape(next)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
