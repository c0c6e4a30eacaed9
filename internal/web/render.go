package web

import (
	"bytes"
	"net/http"

	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/server"
)

// view is the data every page template receives.
type view struct {
	Locale  locale.Locale
	Locales []switchOption
	User    *models.User
	T       func(key string, args ...any) string
	Error   string
	Notice  string
	Email   string
	Next    string
	Data    any
}

type switchOption struct {
	Label  string
	Href   string
	Active bool
}

// localeOf returns the locale the pipeline resolved, or the route variable.
func (a *App) localeOf(r *http.Request) locale.Locale {
	return server.LocaleFrom(r.Context(), a.locales.ValidOrDefault(server.Var(r, "locale")))
}

// switcher links every supported locale to the current page.
func (a *App) switcher(r *http.Request, active locale.Locale) []switchOption {
	_, rest, _ := a.locales.Resolve(r.URL.Path)
	opts := a.locales.Options(active)

	out := make([]switchOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, switchOption{Label: o.Label, Href: locale.Path(o.Locale, rest), Active: o.Active})
	}
	return out
}

// render executes page into a buffer so template errors never produce half a response.
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	tmpl, ok := a.pages[page]
	if !ok {
		a.logger.Error("unknown page", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if v.Locale == "" {
		v.Locale = a.localeOf(r)
	}
	if v.User == nil {
		v.User = server.UserFrom(r.Context())
	}
	v.Locales = a.switcher(r, v.Locale)
	printer := Printer(v.Locale)
	v.T = func(key string, args ...any) string { return printer.Sprintf(key, args...) }

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", v); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if c, err := r.Cookie(locale.CookieName); err != nil || c.Value != string(v.Locale) {
		locale.SetCookie(w, v.Locale, a.cookies.Secure)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// redirect sends a 303 to p under the request locale.
func (a *App) redirect(w http.ResponseWriter, r *http.Request, p string) {
	http.Redirect(w, r, locale.Path(a.localeOf(r), p), http.StatusSeeOther)
}

// origin returns the public origin for links sent by email.
func (a *App) origin(r *http.Request) string {
	if a.siteURL != "" {
		return a.siteURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
