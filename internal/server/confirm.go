package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/models"
)

// Verifier redeems emailed one-time tokens.
type Verifier interface {
	VerifyToken(ctx context.Context, tokenHash, kind string) (*models.Session, error)
}

// ConfirmHandler handles email confirmation and recovery links.
//
// GET /{locale}/auth/confirm?token_hash=...&type=...&next=...
type ConfirmHandler struct {
	verifier Verifier
	locales  *locale.Resolver
	cookies  identity.CookieOptions
	logger   *log.Logger
}

// NewConfirmHandler creates a new confirm handler.
func NewConfirmHandler(verifier Verifier, locales *locale.Resolver, cookies identity.CookieOptions, logger *log.Logger) *ConfirmHandler {
	return &ConfirmHandler{verifier: verifier, locales: locales, cookies: cookies, logger: logger}
}

// Routes implements [Handler].
func (h *ConfirmHandler) Routes() []string {
	return []string{"/{locale}/auth/confirm"}
}

// ServeHTTP verifies the token, stores the session and redirects to next.
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	loc := LocaleFrom(r.Context(), h.locales.ValidOrDefault(Var(r, "locale")))
	query := r.URL.Query()
	tokenHash := query.Get("token_hash")
	kind := query.Get("type")

	if tokenHash == "" || kind == "" {
		h.fail(w, r, loc, "No token hash or type")
		return
	}

	session, err := h.verifier.VerifyToken(r.Context(), tokenHash, kind)
	if err != nil {
		h.logger.Warn("token verification failed", "type", kind, "error", err)
		h.fail(w, r, loc, err.Error())
		return
	}

	for _, c := range identity.SessionCookies(session, h.cookies) {
		http.SetCookie(w, c)
	}
	http.Redirect(w, r, SafeNext(query.Get("next"), locale.Path(loc, "/protected")), http.StatusSeeOther)
}

func (h *ConfirmHandler) fail(w http.ResponseWriter, r *http.Request, loc locale.Locale, msg string) {
	target := locale.Path(loc, "/auth/error") + "?" + url.Values{"error": {msg}}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SafeNext returns next when it is a same-origin absolute path and fallback otherwise.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
