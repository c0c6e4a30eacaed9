package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/server"
	"github.com/desertthunder/todox/internal/shared"
)

const minPasswordLength = 6

// formError maps an identity error onto a user-facing message and status.
func formError(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "The sign-in service is unavailable. Try again shortly."
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password."
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Your session has expired. Sign in again."
	default:
		return http.StatusBadRequest, err.Error()
	}
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "login", view{Next: r.URL.Query().Get("next")})
}

func (a *App) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	next := r.PostFormValue("next")

	if email == "" || password == "" {
		a.render(w, r, http.StatusBadRequest, "login", view{Email: email, Next: next, Error: "Email and password are required."})
		return
	}

	session, err := a.identity.SignIn(r.Context(), email, password)
	if err != nil {
		a.logger.Warn("sign in failed", "email", email, "error", err)
		status, msg := formError(err)
		a.render(w, r, status, "login", view{Email: email, Next: next, Error: msg})
		return
	}

	for _, c := range identity.SessionCookies(session, a.cookies) {
		http.SetCookie(w, c)
	}
	loc := a.localeOf(r)
	http.Redirect(w, r, server.SafeNext(next, locale.Path(loc, "/protected")), http.StatusSeeOther)
}

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "sign-up", view{})
}

func (a *App) handleSignUpSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	repeat := r.PostFormValue("repeat_password")

	if msg := validatePassword(password, repeat); msg != "" {
		a.render(w, r, http.StatusBadRequest, "sign-up", view{Email: email, Error: msg})
		return
	}
	if email == "" {
		a.render(w, r, http.StatusBadRequest, "sign-up", view{Error: "Email is required."})
		return
	}

	loc := a.localeOf(r)
	redirectTo := a.origin(r) + locale.Path(loc, "/auth/confirm") + "?" + url.Values{"next": {locale.Path(loc, "/protected")}}.Encode()
	if _, err := a.identity.SignUp(r.Context(), email, password, redirectTo); err != nil {
		a.logger.Warn("sign up failed", "email", email, "error", err)
		status, msg := formError(err)
		a.render(w, r, status, "sign-up", view{Email: email, Error: msg})
		return
	}
	a.redirect(w, r, "/auth/sign-up-success")
}

func (a *App) handleSignUpSuccess(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "sign-up-success", view{})
}

func (a *App) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "forgot-password", view{})
}

func (a *App) handleForgotPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	if email == "" {
		a.render(w, r, http.StatusBadRequest, "forgot-password", view{Error: "Email is required."})
		return
	}

	loc := a.localeOf(r)
	redirectTo := a.origin(r) + locale.Path(loc, "/auth/update-password")
	if err := a.identity.ResetPassword(r.Context(), email, redirectTo); err != nil {
		a.logger.Warn("password reset failed", "email", email, "error", err)
		status, msg := formError(err)
		a.render(w, r, status, "forgot-password", view{Email: email, Error: msg})
		return
	}
	a.render(w, r, http.StatusOK, "forgot-password", view{Email: email, Notice: "sent"})
}

func (a *App) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	if identity.AccessToken(r) == "" {
		a.redirect(w, r, "/auth/login")
		return
	}
	a.render(w, r, http.StatusOK, "update-password", view{})
}

func (a *App) handleUpdatePasswordSubmit(w http.ResponseWriter, r *http.Request) {
	token := a.accessToken(r)
	if token == "" {
		a.redirect(w, r, "/auth/login")
		return
	}

	password := r.PostFormValue("password")
	if msg := validatePassword(password, password); msg != "" {
		a.render(w, r, http.StatusBadRequest, "update-password", view{Error: msg})
		return
	}

	if _, err := a.identity.UpdatePassword(r.Context(), token, password); err != nil {
		a.logger.Warn("password update failed", "error", err)
		status, msg := formError(err)
		a.render(w, r, status, "update-password", view{Error: msg})
		return
	}
	a.redirect(w, r, "/protected")
}

func (a *App) handleError(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "error", view{Error: r.URL.Query().Get("error")})
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := a.accessToken(r); token != "" {
		if err := a.identity.SignOut(r.Context(), token); err != nil {
			a.logger.Warn("sign out failed", "error", err)
		}
	}
	for _, c := range identity.ClearCookies(a.cookies) {
		http.SetCookie(w, c)
	}
	a.redirect(w, r, "/auth/login")
}

// accessToken prefers the session the pipeline validated over the raw cookie.
func (a *App) accessToken(r *http.Request) string {
	if s := server.SessionFrom(r.Context()); s.Valid() {
		return s.AccessToken
	}
	return identity.AccessToken(r)
}

func validatePassword(password, repeat string) string {
	switch {
	case len(password) < minPasswordLength:
		return "Password must be at least 6 characters."
	case password != repeat:
		return "Passwords do not match"
	default:
		return ""
	}
}
