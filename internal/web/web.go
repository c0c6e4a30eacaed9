package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/server"
	"github.com/desertthunder/todox/internal/shared"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// localeVar matches a locale path segment such as "en" or "zh-TW".
const localeVar = "{locale:[a-z]{2}(?:-[A-Za-z]{2,4})?}"

// Identity is the slice of the identity client the auth pages call.
type Identity interface {
	server.Verifier
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password, redirectTo string) (*models.User, error)
	SignOut(ctx context.Context, accessToken string) error
	ResetPassword(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*models.User, error)
}

var _ Identity = (*identity.Client)(nil)

// Options configures [New].
type Options struct {
	Identity Identity
	// Todos is queried with the signed-in user's token.
	Todos   models.Repository[*models.Todo]
	Locales *locale.Resolver
	Cookies identity.CookieOptions
	// SiteURL is the public origin used in emailed links. Derived from the request when empty.
	SiteURL string
	// StaticDir serves assets from disk instead of the embedded copy.
	StaticDir string
	Logger    *log.Logger
	Now       func() time.Time
	IDs       func() string
}

// App holds the page handlers.
type App struct {
	identity  Identity
	todos     models.Repository[*models.Todo]
	locales   *locale.Resolver
	cookies   identity.CookieOptions
	siteURL   string
	staticDir string
	logger    *log.Logger
	now       func() time.Time
	ids       func() string
	pages     map[string]*template.Template
}

// New parses the page templates and returns the app.
func New(opts Options) (*App, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	app := &App{
		identity:  opts.Identity,
		todos:     opts.Todos,
		locales:   opts.Locales,
		cookies:   opts.Cookies,
		siteURL:   strings.TrimRight(opts.SiteURL, "/"),
		staticDir: opts.StaticDir,
		logger:    opts.Logger,
		now:       opts.Now,
		ids:       opts.IDs,
		pages:     pages,
	}
	if app.locales == nil {
		app.locales = locale.Standard()
	}
	if app.logger == nil {
		app.logger = log.New(io.Discard)
	}
	if app.now == nil {
		app.now = time.Now
	}
	if app.ids == nil {
		app.ids = shared.GenerateID
	}
	return app, nil
}

func parsePages() (map[string]*template.Template, error) {
	files, err := fs.Glob(templatesFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

var funcs = template.FuncMap{
	"localePath": func(l locale.Locale, p string) string { return locale.Path(l, p) },
}

// Register mounts every page on router.
func (a *App) Register(router *server.BasicRouter) {
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.handleHealth))
	router.Handler(staticHandler{a.static()})

	prefix := "/" + localeVar
	router.Handle(http.MethodGet, prefix, http.HandlerFunc(a.handleHome))

	router.Handle(http.MethodGet, prefix+"/auth/login", http.HandlerFunc(a.handleLogin))
	router.Handle(http.MethodPost, prefix+"/auth/login", http.HandlerFunc(a.handleLoginSubmit))
	router.Handle(http.MethodGet, prefix+"/auth/sign-up", http.HandlerFunc(a.handleSignUp))
	router.Handle(http.MethodPost, prefix+"/auth/sign-up", http.HandlerFunc(a.handleSignUpSubmit))
	router.Handle(http.MethodGet, prefix+"/auth/sign-up-success", http.HandlerFunc(a.handleSignUpSuccess))
	router.Handle(http.MethodGet, prefix+"/auth/forgot-password", http.HandlerFunc(a.handleForgotPassword))
	router.Handle(http.MethodPost, prefix+"/auth/forgot-password", http.HandlerFunc(a.handleForgotPasswordSubmit))
	router.Handle(http.MethodGet, prefix+"/auth/update-password", http.HandlerFunc(a.handleUpdatePassword))
	router.Handle(http.MethodPost, prefix+"/auth/update-password", http.HandlerFunc(a.handleUpdatePasswordSubmit))
	router.Handle(http.MethodGet, prefix+"/auth/error", http.HandlerFunc(a.handleError))
	router.Handle(http.MethodPost, prefix+"/auth/logout", http.HandlerFunc(a.handleLogout))
	router.Handler(server.NewConfirmHandler(a.identity, a.locales, a.cookies, a.logger))

	router.Handle(http.MethodGet, prefix+"/protected", http.HandlerFunc(a.handleProtected))
	router.Handle(http.MethodGet, prefix+"/protected/todos", http.HandlerFunc(a.handleTodos))
	router.Handle(http.MethodPost, prefix+"/protected/todos", http.HandlerFunc(a.handleTodosSubmit))

	router.NotFound(http.HandlerFunc(a.handleNotFound))
}

func (a *App) static() http.Handler {
	if a.staticDir != "" {
		return http.StripPrefix("/static/", http.FileServer(http.Dir(a.staticDir)))
	}
	sub, _ := fs.Sub(staticFS, "static")
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

type staticHandler struct{ http.Handler }

func (staticHandler) Routes() []string { return []string{"/static/"} }

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (a *App) handleNotFound(w http.ResponseWriter, r *http.Request) {
	loc, _, _ := a.locales.Resolve(r.URL.Path)
	a.render(w, r, http.StatusNotFound, "error", view{
		Locale: loc,
		Error:  "page not found",
	})
}
