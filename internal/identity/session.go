package identity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// Session cookie names.
const (
	AccessCookie  = "todox-access-token"
	RefreshCookie = "todox-refresh-token"
)

const refreshCookieTTL = 30 * 24 * time.Hour

// CookieOptions controls the attributes of written session cookies.
type CookieOptions struct {
	Secure bool
}

// Result is the outcome of [Client.Authenticate].
//
// User is nil when there is no valid session. Cookies holds every cookie write the
// check produced and must be copied onto the response, session or not.
type Result struct {
	User    *models.User
	Session *models.Session
	Cookies []*http.Cookie
}

// Authenticated reports whether the request carried a session the service accepted.
func (r Result) Authenticated() bool { return r.User != nil }

// Authenticate resolves the session carried by r's cookies.
//
// A missing or rejected session yields a zero User and a nil error. Network and 5xx
// failures are returned as errors so the caller can log them; callers must treat
// them as "no session".
func (c *Client) Authenticate(ctx context.Context, r *http.Request, opts CookieOptions) (Result, error) {
	access := cookieValue(r, AccessCookie)
	refresh := cookieValue(r, RefreshCookie)
	if access == "" && refresh == "" {
		return Result{}, nil
	}

	var result Result
	session := &models.Session{AccessToken: access, RefreshToken: refresh}
	refreshed := false

	if refresh != "" && c.expiring(access) {
		next, err := c.Refresh(ctx, refresh)
		switch {
		case err == nil:
			session, refreshed = next, true
			result.Cookies = SessionCookies(next, opts)
		case errors.Is(err, shared.ErrRefreshFailed):
			result.Cookies = ClearCookies(opts)
			return result, nil
		default:
			return result, err
		}
	}

	user, err := c.GetUser(ctx, session.AccessToken)
	if errors.Is(err, shared.ErrNotAuthenticated) && !refreshed && session.RefreshToken != "" {
		next, rerr := c.Refresh(ctx, session.RefreshToken)
		if rerr != nil {
			if errors.Is(rerr, shared.ErrRefreshFailed) {
				result.Cookies = ClearCookies(opts)
				return result, nil
			}
			return result, rerr
		}
		session = next
		result.Cookies = SessionCookies(next, opts)
		user, err = c.GetUser(ctx, session.AccessToken)
	}

	switch {
	case err == nil:
		result.User = user
		result.Session = session
		return result, nil
	case errors.Is(err, shared.ErrNotAuthenticated):
		result.Cookies = ClearCookies(opts)
		return result, nil
	default:
		return result, err
	}
}

// expiring reports whether the access token is missing, unreadable or inside the refresh leeway.
func (c *Client) expiring(access string) bool {
	if access == "" {
		return true
	}
	exp, ok := ExpiresAt(access)
	if !ok {
		return false
	}
	return !c.now().Add(c.leeway).Before(exp)
}

func cookieValue(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SessionCookies returns the cookie writes that store session.
func SessionCookies(session *models.Session, opts CookieOptions) []*http.Cookie {
	access := &http.Cookie{
		Name:     AccessCookie,
		Value:    session.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		access.Expires = session.ExpiresAt
	}

	cookies := []*http.Cookie{access}
	if session.RefreshToken != "" {
		cookies = append(cookies, &http.Cookie{
			Name:     RefreshCookie,
			Value:    session.RefreshToken,
			Path:     "/",
			MaxAge:   int(refreshCookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cookies
}

// ClearCookies returns the cookie writes that remove a session.
func ClearCookies(opts CookieOptions) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, 2)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		cookies = append(cookies, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cookies
}

// AccessToken returns the access token cookie of r, if any.
func AccessToken(r *http.Request) string {
	return cookieValue(r, AccessCookie)
}
