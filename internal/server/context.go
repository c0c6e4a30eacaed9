package server

import (
	"context"

	"github.com/desertthunder/todox/internal/locale"
	"github.com/desertthunder/todox/internal/models"
)

type contextKey int

const (
	userKey contextKey = iota
	sessionKey
	localeKey
)

// WithUser stores the signed-in user and session on ctx.
func WithUser(ctx context.Context, user *models.User, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, sessionKey, session)
}

// WithLocale stores the request locale on ctx.
func WithLocale(ctx context.Context, loc locale.Locale) context.Context {
	return context.WithValue(ctx, localeKey, loc)
}

// UserFrom returns the signed-in user, or nil.
func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// SessionFrom returns the validated session, or nil.
func SessionFrom(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionKey).(*models.Session)
	return s
}

// LocaleFrom returns the request locale, or def when the pipeline did not set one.
func LocaleFrom(ctx context.Context, def locale.Locale) locale.Locale {
	if l, ok := ctx.Value(localeKey).(locale.Locale); ok {
		return l
	}
	return def
}
