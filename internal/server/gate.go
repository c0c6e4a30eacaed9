package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/models"
)

// Classification buckets a locale-stripped path by its access requirement.
type Classification int

const (
	Root Classification = iota
	AuthPage
	ProtectedPage
)

func (c Classification) String() string {
	switch c {
	case Root:
		return "root"
	case AuthPage:
		return "auth-page"
	default:
		return "protected-page"
	}
}

// Classify maps a locale-stripped path onto its classification.
//
// "/" is the root. Anything under /auth or /login is an auth page. Everything else needs a session.
func Classify(path string) Classification {
	if path == "" || path == "/" {
		return Root
	}
	for _, prefix := range []string{"/auth", "/login"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return AuthPage
		}
	}
	return ProtectedPage
}

// Authenticator validates the session cookies of a request.
//
// [identity.Client] implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request, opts identity.CookieOptions) (identity.Result, error)
}

var _ Authenticator = (*identity.Client)(nil)

// Decision is the outcome of [Gate.Authorize].
//
// Cookies must be written on the response whether or not the request is allowed.
type Decision struct {
	Allow      bool
	RedirectTo string
	Cookies    []*http.Cookie
	User       *models.User
	Session    *models.Session
}

// Gate decides whether a request may reach its page.
type Gate struct {
	auth    Authenticator
	cookies identity.CookieOptions
	logger  *log.Logger
}

// NewGate creates a gate backed by auth.
func NewGate(auth Authenticator, cookies identity.CookieOptions, logger *log.Logger) *Gate {
	return &Gate{auth: auth, cookies: cookies, logger: logger}
}

// Authorize checks the session of r and decides for a page of class under loc.
//
// The identity check runs for every class so rotated tokens reach the browser. A failed
// check counts as no session.
func (g *Gate) Authorize(ctx context.Context, r *http.Request, loc locale.Locale, class Classification) Decision {
	result, err := g.auth.Authenticate(ctx, r, g.cookies)
	if err != nil {
		g.logger.Warn("session check failed", "path", r.URL.Path, "error", err)
		result.User, result.Session = nil, nil
	}

	decision := Decision{Cookies: result.Cookies, User: result.User, Session: result.Session}
	if class != ProtectedPage || result.Authenticated() {
		decision.Allow = true
		return decision
	}

	decision.User, decision.Session = nil, nil
	decision.RedirectTo = LoginPath(loc)
	if r.URL.RawQuery != "" {
		decision.RedirectTo += "?" + r.URL.RawQuery
	}
	return decision
}

// LoginPath returns the login page of loc.
func LoginPath(loc locale.Locale) string {
	return locale.Path(loc, "/auth/login")
}
