package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            "ada@example.com",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// fakeIdentity answers the password and refresh grants plus logout.
type fakeIdentity struct {
	t       *testing.T
	mu      sync.Mutex
	grants  []string
	logouts int
}

func (f *fakeIdentity) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/token":
		r.ParseForm()
		grant := r.Form.Get("grant_type")
		f.grants = append(f.grants, grant)

		ok := (grant == "password" && r.Form.Get("password") == "hunter2") ||
			(grant == "refresh_token" && r.Form.Get("refresh_token") == "refresh-1")
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  signToken(f.t, time.Now().Add(time.Hour)),
			"token_type":    "bearer",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})

	case r.Method == http.MethodPost && r.URL.Path == "/logout":
		f.logouts++
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newAuthRunner(t *testing.T) (*Runner, *bytes.Buffer, *fakeIdentity) {
	t.Helper()
	t.Setenv("TODOX_PASSWORD", "")

	svc := &fakeIdentity{t: t}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.Identity.URL = srv.URL
	client, err := identity.NewClient(config.Identity, identity.Options{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	runner, output, _ := newTestRunner(t, RunnerOpts{Config: config, Identity: client})
	return runner, output, svc
}

func TestAuthCommands(t *testing.T) {
	t.Run("login stores the session", func(t *testing.T) {
		runner, output, _ := newAuthRunner(t)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "hunter2"); err != nil {
			t.Fatalf("login: %v", err)
		}
		if !strings.Contains(output.String(), "Signed in as ada@example.com") {
			t.Errorf("unexpected output %q", output.String())
		}

		session, err := runner.loadSession()
		if err != nil {
			t.Fatalf("loadSession() error = %v", err)
		}
		if session.RefreshToken != "refresh-2" {
			t.Errorf("refresh token = %q", session.RefreshToken)
		}
		if session.User == nil || session.User.Email != "ada@example.com" {
			t.Errorf("user = %+v", session.User)
		}
	})

	t.Run("login rejects bad credentials", func(t *testing.T) {
		runner, _, _ := newAuthRunner(t)

		if err := run(runner, "auth", "login", "--email", "ada@example.com", "--password", "wrong"); err == nil {
			t.Fatal("expected an error")
		}
		if _, err := runner.loadSession(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected no stored session, got %v", err)
		}
	})

	t.Run("login requires a password", func(t *testing.T) {
		runner, _, _ := newAuthRunner(t)

		err := run(runner, "auth", "login", "--email", "ada@example.com")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("status reports the signed-in user", func(t *testing.T) {
		runner, output, _ := newAuthRunner(t)

		if err := run(runner, "auth", "status", "--json"); err != nil {
			t.Fatalf("status: %v", err)
		}
		var before authStatus
		if err := json.Unmarshal([]byte(output.String()), &before); err != nil {
			t.Fatalf("failed to decode %q: %v", output.String(), err)
		}
		if before.Authenticated {
			t.Error("expected not authenticated before login")
		}

		run(runner, "auth", "login", "--email", "ada@example.com", "--password", "hunter2")
		output.Reset()

		if err := run(runner, "auth", "status"); err != nil {
			t.Fatalf("status: %v", err)
		}
		if !strings.Contains(output.String(), "Signed in: yes") || !strings.Contains(output.String(), "ada@example.com") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("logout revokes and forgets the session", func(t *testing.T) {
		runner, _, svc := newAuthRunner(t)

		run(runner, "auth", "login", "--email", "ada@example.com", "--password", "hunter2")
		if err := run(runner, "auth", "logout"); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if svc.logouts != 1 {
			t.Errorf("logouts = %d, want 1", svc.logouts)
		}
		if _, err := runner.loadSession(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("without a session", func(t *testing.T) {
		runner, _, _ := newAuthRunner(t)

		if _, err := runner.accessToken(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("fresh token is returned as is", func(t *testing.T) {
		runner, _, svc := newAuthRunner(t)
		token := signToken(t, time.Now().Add(time.Hour))
		runner.saveSession(&models.Session{AccessToken: token, RefreshToken: "refresh-1"})

		got, err := runner.accessToken(ctx)
		if err != nil {
			t.Fatalf("accessToken() error = %v", err)
		}
		if got != token {
			t.Error("expected the stored token")
		}
		if len(svc.grants) != 0 {
			t.Errorf("expected no token requests, got %v", svc.grants)
		}
	})

	t.Run("expiring token is rotated and saved", func(t *testing.T) {
		runner, _, svc := newAuthRunner(t)
		stale := signToken(t, time.Now().Add(10*time.Second))
		runner.saveSession(&models.Session{AccessToken: stale, RefreshToken: "refresh-1"})

		got, err := runner.accessToken(ctx)
		if err != nil {
			t.Fatalf("accessToken() error = %v", err)
		}
		if got == stale {
			t.Error("expected a rotated token")
		}
		if len(svc.grants) != 1 || svc.grants[0] != "refresh_token" {
			t.Errorf("grants = %v", svc.grants)
		}

		session, _ := runner.loadSession()
		if session.AccessToken != got || session.RefreshToken != "refresh-2" {
			t.Errorf("saved session = %+v", session)
		}
	})

	t.Run("expired token without refresh token", func(t *testing.T) {
		runner, _, _ := newAuthRunner(t)
		runner.saveSession(&models.Session{AccessToken: signToken(t, time.Now().Add(-time.Minute))})

		if _, err := runner.accessToken(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("rejected refresh", func(t *testing.T) {
		runner, _, _ := newAuthRunner(t)
		runner.saveSession(&models.Session{AccessToken: signToken(t, time.Now()), RefreshToken: "revoked"})

		if _, err := runner.accessToken(ctx); !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})
}
