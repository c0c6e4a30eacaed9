package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [mux.Router] internally for routing, so paths may carry variables such as {locale}.
type BasicRouter struct {
	mux         *mux.Router
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	m := mux.NewRouter()
	m.StrictSlash(true)
	return &BasicRouter{
		mux:         m,
		middlewares: []Middleware{},
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware. Other methods on the same path get 405.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, r.Apply(handler)).Methods(strings.ToUpper(method))
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler. Routes ending in
// "/" match as prefixes.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		if len(route) > 1 && strings.HasSuffix(route, "/") {
			r.mux.PathPrefix(route).Handler(wrapped)
			continue
		}
		r.mux.Handle(route, wrapped)
	}
}

// NotFound sets the handler for unmatched paths.
func (r *BasicRouter) NotFound(handler http.Handler) {
	r.mux.NotFoundHandler = r.Apply(handler)
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}

// Var returns the named route variable of req.
func Var(req *http.Request, name string) string {
	return mux.Vars(req)[name]
}
