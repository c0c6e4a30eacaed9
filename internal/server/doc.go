// Package server provides HTTP routing, the session gate and the request middleware pipeline for the web app.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses a gorilla/mux router internally with method matching and
// `{locale}` path variables.
//
// # Request Pipeline
//
// Every request passes through [Pipeline] before reaching the router. It runs two stages and
// stops at the first redirect:
//
//  1. Locale: a path without a supported locale prefix is redirected (307) to the negotiated
//     locale. Static assets and health checks are exempt.
//  2. Session: [Gate] classifies the locale-stripped path and checks the session cookie against
//     the identity service. Protected pages without a session redirect to the locale's login page.
//
// The identity check can rotate session cookies. Those writes are copied onto whichever
// response is returned, redirect or forward.
//
// # Confirm Handler
//
// [ConfirmHandler] redeems emailed one-time tokens (sign-up confirmation, password recovery),
// stores the resulting session cookies and redirects to the requested page.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
