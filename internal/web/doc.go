// Package web serves the server-rendered pages of the todox web app.
//
// # Routes
//
// Every page lives under a locale prefix. The request pipeline in package server redirects
// unprefixed paths and gates /{locale}/protected before these handlers run.
//
//	GET       /{locale}                        → landing page
//	GET, POST /{locale}/auth/login             → password sign-in
//	GET, POST /{locale}/auth/sign-up           → account creation
//	GET       /{locale}/auth/sign-up-success   → "check your email"
//	GET, POST /{locale}/auth/forgot-password   → recovery email
//	GET, POST /{locale}/auth/update-password   → new password for the current session
//	GET       /{locale}/auth/error             → error page (?error=)
//	GET       /{locale}/auth/confirm           → email link redemption (server.ConfirmHandler)
//	POST      /{locale}/auth/logout            → sign out and clear cookies
//	GET       /{locale}/protected              → signed-in user's claims
//	GET, POST /{locale}/protected/todos        → the user's remote todos
//	GET       /static/...                      → embedded assets
//	GET       /healthz                         → liveness
//
// # Templates
//
// Each page template in templates/pages is parsed together with templates/layout.html. Text
// runs through a [message.Printer] for the request locale; strings without a translation
// fall back to English.
package web
