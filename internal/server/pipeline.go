package server

import (
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/locale"
)

// Outcome is the terminal state of the pipeline.
type Outcome int

const (
	Forward Outcome = iota
	Redirect
)

// Result is what [Pipeline.Evaluate] decided for a request.
type Result struct {
	Outcome  Outcome
	Location string
	Cookies  []*http.Cookie
	Request  *http.Request
}

var (
	excludedPrefixes = []string{"/static/", "/_next/"}
	excludedPaths    = []string{"/favicon.ico", "/healthz", "/robots.txt"}
	imageExtensions  = []string{".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico"}
)

// Excluded reports whether p bypasses both stages.
func Excluded(p string) bool {
	if slices.Contains(excludedPaths, p) {
		return true
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return slices.Contains(imageExtensions, strings.ToLower(path.Ext(p)))
}

// Pipeline runs locale routing then the session gate.
type Pipeline struct {
	locales *locale.Resolver
	gate    *Gate
	logger  *log.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(locales *locale.Resolver, gate *Gate, logger *log.Logger) *Pipeline {
	return &Pipeline{locales: locales, gate: gate, logger: logger}
}

// Evaluate decides between redirecting and forwarding r.
//
// A path without a locale prefix redirects to the negotiated locale and never reaches the gate.
// A forwarded request carries the locale, user and session in its context.
func (p *Pipeline) Evaluate(r *http.Request) Result {
	if Excluded(r.URL.Path) {
		return Result{Outcome: Forward, Request: r}
	}

	loc, rest, ok := p.locales.Resolve(r.URL.Path)
	if !ok {
		target := *r.URL
		target.Path = locale.Path(p.locales.Negotiate(r), r.URL.Path)
		target.RawPath = ""
		return Result{Outcome: Redirect, Location: target.RequestURI()}
	}

	class := Classify(rest)
	decision := p.gate.Authorize(r.Context(), r, loc, class)
	if !decision.Allow {
		p.logger.Debug("redirecting to login", "path", r.URL.Path, "class", class)
		return Result{Outcome: Redirect, Location: decision.RedirectTo, Cookies: decision.Cookies}
	}

	ctx := WithLocale(r.Context(), loc)
	ctx = WithUser(ctx, decision.User, decision.Session)
	return Result{Outcome: Forward, Cookies: decision.Cookies, Request: r.WithContext(ctx)}
}

// Middleware applies the pipeline in front of next.
func (p *Pipeline) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := p.Evaluate(r)
			for _, c := range result.Cookies {
				http.SetCookie(w, c)
			}

			if result.Outcome == Redirect {
				http.Redirect(w, r, result.Location, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, result.Request)
		})
	}
}
