package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/syncstore"
	"github.com/urfave/cli/v3"
)

// sessionBlob is the storage name the CLI keeps its identity session under.
const sessionBlob = "session"

// requireIdentity returns the identity client, building it from config on first use.
func (r *Runner) requireIdentity() (*identity.Client, error) {
	if r.identity != nil {
		return r.identity, nil
	}
	client, err := identity.NewClient(r.config.Identity, identity.Options{HTTPClient: r.httpClient, Now: r.now})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	r.identity = client
	return client, nil
}

func (r *Runner) loadSession() (*models.Session, error) {
	storage, err := r.openStorage()
	if err != nil {
		return nil, err
	}

	blob, err := storage.Load(sessionBlob)
	if errors.Is(err, shared.ErrBlobNotFound) || (err == nil && len(blob) == 0) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(blob, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if !session.Valid() {
		return nil, shared.ErrNotAuthenticated
	}
	return &session, nil
}

func (r *Runner) saveSession(session *models.Session) error {
	storage, err := r.openStorage()
	if err != nil {
		return err
	}

	blob, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := storage.Save(sessionBlob, blob); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *Runner) clearSession() error {
	storage, err := r.openStorage()
	if err != nil {
		return err
	}
	if d, ok := storage.(interface{ Delete(string) error }); ok {
		return d.Delete(sessionBlob)
	}
	return storage.Save(sessionBlob, nil)
}

// accessToken returns the stored access token, rotating it first when it is
// within the configured leeway of expiry. It backs the collection client.
func (r *Runner) accessToken(ctx context.Context) (string, error) {
	session, err := r.loadSession()
	if err != nil {
		return "", err
	}

	expires := session.ExpiresAt
	if exp, ok := identity.ExpiresAt(session.AccessToken); ok {
		expires = exp
	}
	if expires.IsZero() || r.now().Add(r.config.Identity.RefreshLeeway()).Before(expires) {
		return session.AccessToken, nil
	}
	if session.RefreshToken == "" {
		return "", fmt.Errorf("%w: session expired", shared.ErrNotAuthenticated)
	}

	client, err := r.requireIdentity()
	if err != nil {
		return "", err
	}

	r.logger.Debug("refreshing access token", "expires", expires)
	refreshed, err := client.Refresh(ctx, session.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if refreshed.User == nil {
		refreshed.User = session.User
	}
	if err := r.saveSession(refreshed); err != nil {
		r.logger.Warn("failed to persist refreshed session", "error", err)
	}
	return refreshed.AccessToken, nil
}

// AuthLogin signs in with email and password and stores the session for sync.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or TODOX_PASSWORD is required", shared.ErrMissingArgument)
	}

	client, err := r.requireIdentity()
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "email", email)
	session, err := client.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if session.User == nil {
		session.User = identity.UserFromToken(session.AccessToken)
	}
	if err := r.saveSession(session); err != nil {
		return err
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Signed in as %s\n", email)
}

// AuthLogout revokes the stored session and forgets it locally.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	session, err := r.loadSession()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("Not signed in\n")
	}
	if err != nil {
		return err
	}

	if client, err := r.requireIdentity(); err != nil {
		r.logger.Warn("skipping remote sign-out", "error", err)
	} else if err := client.SignOut(ctx, session.AccessToken); err != nil {
		r.logger.Warn("remote sign-out failed", "error", err)
	}

	if err := r.clearSession(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	Authenticated bool              `json:"authenticated"`
	User          *models.User      `json:"user,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Claims        *identity.Claims  `json:"claims,omitempty"`
	Sync          *syncstore.Status `json:"sync,omitempty"`
}

// AuthStatus reports the stored session and the local store's sync state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status := authStatus{}

	session, err := r.loadSession()
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
	case err != nil:
		return err
	default:
		status.Authenticated = true
		status.User = session.User
		if status.User == nil {
			status.User = identity.UserFromToken(session.AccessToken)
		}
		if claims, err := identity.ParseClaims(session.AccessToken); err == nil {
			status.Claims = claims
		}
		if exp, ok := identity.ExpiresAt(session.AccessToken); ok {
			status.ExpiresAt = &exp
		} else if !session.ExpiresAt.IsZero() {
			status.ExpiresAt = &session.ExpiresAt
		}
	}

	store, err := r.openStore()
	if err != nil {
		r.logger.Warn("failed to open store", "error", err)
	} else {
		s := store.Status()
		status.Sync = &s
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Auth Status")
	if !status.Authenticated {
		r.writePlain("Signed in: no\n")
		r.writePlain("Run 'todox auth login --email you@example.com' to enable sync\n")
	} else {
		r.writePlain("Signed in: yes\n")
		if status.User != nil {
			r.writePlain("User:      %s (%s)\n", status.User.Email, status.User.ID)
		}
		if status.ExpiresAt != nil {
			r.writePlain("Expires:   %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
		}
	}
	if s := status.Sync; s != nil {
		r.writePlain("Pending:   %d\n", s.Pending)
		if !s.LastSync.IsZero() {
			r.writePlain("Last sync: %s\n", s.LastSync.Local().Format(time.RFC1123))
		}
		if s.LastError != "" {
			r.writePlain("Error:     %s\n", s.LastError)
		}
	}
	return nil
}
