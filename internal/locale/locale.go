// Package locale maps request paths and headers onto the fixed set of UI locales.
//
// Every locale the web app renders with comes from a [Resolver], so unsupported or
// missing input is always coerced to the configured default.
package locale

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Locale is a supported language/region code such as "en" or "zh-TW".
type Locale string

func (l Locale) String() string { return string(l) }

const (
	// CookieName stores the visitor's locale preference.
	CookieName = "todox_locale"
	// QueryParam lets a link pick a locale explicitly.
	QueryParam = "lang"
)

// Builtin lists the locales shipped with the app. The first entry is the default.
var Builtin = []Locale{"en", "es", "fr", "de", "zh-TW", "ru"}

var displayNames = map[Locale]string{
	"en":    "English",
	"es":    "Español",
	"fr":    "Français",
	"de":    "Deutsch",
	"zh-TW": "繁體中文",
	"ru":    "Русский",
}

// Option is one entry of the locale switcher.
type Option struct {
	Locale Locale
	Label  string
	Active bool
}

// Resolver holds the supported set and its default.
type Resolver struct {
	supported []Locale
	def       Locale
	matcher   language.Matcher
}

// New builds a resolver over supported. def must be a member of supported.
func New(supported []string, def string) (*Resolver, error) {
	if len(supported) == 0 {
		return nil, fmt.Errorf("locale: supported set is empty")
	}

	locales := make([]Locale, 0, len(supported))
	for _, s := range supported {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := language.Parse(s); err != nil {
			return nil, fmt.Errorf("locale: invalid code %q: %w", s, err)
		}
		if !slices.Contains(locales, Locale(s)) {
			locales = append(locales, Locale(s))
		}
	}
	if !slices.Contains(locales, Locale(def)) {
		return nil, fmt.Errorf("locale: default %q is not in the supported set", def)
	}

	// The default goes first so the matcher falls back to it on no confidence.
	tags := []language.Tag{language.Make(def)}
	for _, l := range locales {
		if l != Locale(def) {
			tags = append(tags, language.Make(string(l)))
		}
	}

	return &Resolver{supported: locales, def: Locale(def), matcher: language.NewMatcher(tags)}, nil
}

// Standard returns a resolver over [Builtin] with "en" as the default.
func Standard() *Resolver {
	codes := make([]string, len(Builtin))
	for i, l := range Builtin {
		codes[i] = string(l)
	}
	r, err := New(codes, string(Builtin[0]))
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the fallback locale.
func (r *Resolver) Default() Locale { return r.def }

// Supported returns a copy of the supported set in configured order.
func (r *Resolver) Supported() []Locale { return slices.Clone(r.supported) }

// IsSupported reports whether code is an exact member of the supported set.
func (r *Resolver) IsSupported(code string) bool {
	return slices.Contains(r.supported, Locale(code))
}

// ValidOrDefault returns code as a Locale when supported and the default otherwise.
func (r *Resolver) ValidOrDefault(code string) Locale {
	if r.IsSupported(code) {
		return Locale(code)
	}
	return r.def
}

// Resolve splits a leading locale segment off path.
//
// When the first segment is supported, it returns that locale, the remainder with
// the segment stripped and ok=true. Otherwise it returns the default locale, the
// path unchanged and ok=false. Empty and bare-slash remainders become "/".
func (r *Resolver) Resolve(path string) (loc Locale, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	first, remainder, found := strings.Cut(trimmed, "/")

	if !r.IsSupported(first) {
		if path == "" {
			return r.def, "/", false
		}
		return r.def, path, false
	}

	if !found || remainder == "" {
		return Locale(first), "/", true
	}
	return Locale(first), "/" + remainder, true
}

// Negotiate picks a locale for a request that carries none in its path.
//
// The lang query parameter wins, then the preference cookie, then Accept-Language.
func (r *Resolver) Negotiate(req *http.Request) Locale {
	if req == nil {
		return r.def
	}

	if v := strings.TrimSpace(req.URL.Query().Get(QueryParam)); r.IsSupported(v) {
		return Locale(v)
	}

	if c, err := req.Cookie(CookieName); err == nil && r.IsSupported(c.Value) {
		return Locale(c.Value)
	}

	if accept := strings.TrimSpace(req.Header.Get("Accept-Language")); accept != "" {
		return r.Match(accept)
	}
	return r.def
}

// Match returns the best supported locale for an Accept-Language header value.
func (r *Resolver) Match(accept string) Locale {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return r.def
	}

	_, idx, conf := r.matcher.Match(tags...)
	if conf == language.No {
		return r.def
	}
	if idx == 0 {
		return r.def
	}

	// Index 0 is the default; the rest follow configured order minus the default.
	i := 0
	for _, l := range r.supported {
		if l == r.def {
			continue
		}
		i++
		if i == idx {
			return l
		}
	}
	return r.def
}

// Options returns switcher entries in configured order with active marked.
func (r *Resolver) Options(active Locale) []Option {
	options := make([]Option, 0, len(r.supported))
	for _, l := range r.supported {
		options = append(options, Option{Locale: l, Label: DisplayName(l), Active: l == active})
	}
	return options
}

// Path prefixes p with the locale segment.
func Path(l Locale, p string) string {
	if p == "" || p == "/" {
		return "/" + string(l)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "/" + string(l) + p
}

// DisplayName returns the native name of l, or the code itself when unknown.
func DisplayName(l Locale) string {
	if name, ok := displayNames[l]; ok {
		return name
	}
	return string(l)
}

// SetCookie persists the locale preference on the response.
func SetCookie(w http.ResponseWriter, l Locale, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(l),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
