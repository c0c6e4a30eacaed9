package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/todox/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            email,
		Role:             "authenticated",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// fakeService mimics the identity endpoints the client uses.
type fakeService struct {
	t        *testing.T
	mu       sync.Mutex
	valid    map[string]bool
	refresh  map[string]bool
	calls    map[string]int
	apiKeys  []string
	lastBody map[string]string
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{
		t:       t,
		valid:   make(map[string]bool),
		refresh: map[string]bool{"refresh-1": true},
		calls:   make(map[string]int),
	}
}

func (f *fakeService) issue(w http.ResponseWriter, nextRefresh string) {
	access := signToken(f.t, "user-1", "ada@example.com", testNow.Add(time.Hour))
	f.valid[access] = true
	f.refresh[nextRefresh] = true

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"refresh_token": nextRefresh,
		"expires_in":    3600,
	})
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[r.Method+" "+r.URL.Path]++
	f.apiKeys = append(f.apiKeys, r.Header.Get("apikey"))

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/token":
		r.ParseForm()
		switch r.Form.Get("grant_type") {
		case "password":
			if r.Form.Get("username") == "ada@example.com" && r.Form.Get("password") == "hunter2" {
				f.issue(w, "refresh-1")
				return
			}
		case "refresh_token":
			rt := r.Form.Get("refresh_token")
			if f.refresh[rt] {
				delete(f.refresh, rt)
				f.issue(w, rt+"-next")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))

	case r.Method == http.MethodGet && r.URL.Path == "/user":
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !f.valid[token] {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "ada@example.com"})

	case r.Method == http.MethodPost && (r.URL.Path == "/signup" || r.URL.Path == "/recover" || r.URL.Path == "/verify"):
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		f.lastBody = body
		if r.URL.Path == "/verify" {
			if body["token_hash"] != "good-hash" {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"msg":"Email link is invalid or has expired"}`))
				return
			}
			f.issue(w, "refresh-verified")
			return
		}
		if r.URL.Path == "/signup" {
			json.NewEncoder(w).Encode(map[string]any{"id": "user-2", "email": body["email"]})
			return
		}
		w.Write([]byte(`{}`))

	case r.Method == http.MethodPost && r.URL.Path == "/logout":
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodPut && r.URL.Path == "/user":
		json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "ada@example.com"})

	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (f *fakeService) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(shared.IdentityConfig{
		URL:                  srv.URL,
		AnonKey:              "anon",
		ClientID:             "todox",
		RefreshLeewaySeconds: 60,
	}, Options{HTTPClient: srv.Client(), Now: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(shared.IdentityConfig{}, Options{}); !errors.Is(err, shared.ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig, got %v", err)
	}
}

func TestSignIn(t *testing.T) {
	svc := newFakeService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		session, err := client.SignIn(ctx, "ada@example.com", "hunter2")
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		if session.RefreshToken != "refresh-1" {
			t.Errorf("refresh token = %q", session.RefreshToken)
		}
		if session.User == nil || session.User.Email != "ada@example.com" {
			t.Errorf("user = %+v", session.User)
		}
		if !session.ExpiresAt.Equal(testNow.Add(time.Hour)) {
			t.Errorf("expires at = %v, want exp claim", session.ExpiresAt)
		}
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := client.SignIn(ctx, "ada@example.com", "wrong")
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := client.SignIn(ctx, "", "")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("sends api key", func(t *testing.T) {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		for _, k := range svc.apiKeys {
			if k != "anon" {
				t.Fatalf("apikey header = %q, want anon", k)
			}
		}
	})
}

func TestRefresh(t *testing.T) {
	client := newTestClient(t, newFakeService(t))
	ctx := context.Background()

	session, err := client.Refresh(ctx, "refresh-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if session.RefreshToken != "refresh-1-next" {
		t.Errorf("refresh token = %q", session.RefreshToken)
	}

	if _, err := client.Refresh(ctx, "refresh-1"); !errors.Is(err, shared.ErrRefreshFailed) {
		t.Errorf("reused refresh token: expected ErrRefreshFailed, got %v", err)
	}
	if _, err := client.Refresh(ctx, ""); !errors.Is(err, shared.ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	client := newTestClient(t, newFakeService(t))
	ctx := context.Background()

	session, err := client.SignIn(ctx, "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	user, err := client.GetUser(ctx, session.AccessToken)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user id = %q", user.ID)
	}

	if _, err := client.GetUser(ctx, "garbage"); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAccountFlows(t *testing.T) {
	svc := newFakeService(t)
	client := newTestClient(t, svc)
	ctx := context.Background()

	t.Run("SignUp", func(t *testing.T) {
		user, err := client.SignUp(ctx, "new@example.com", "pw", "http://app/en/auth/confirm")
		if err != nil {
			t.Fatalf("SignUp() error = %v", err)
		}
		if user.Email != "new@example.com" {
			t.Errorf("email = %q", user.Email)
		}
	})

	t.Run("ResetPassword", func(t *testing.T) {
		if err := client.ResetPassword(ctx, "ada@example.com", ""); err != nil {
			t.Fatalf("ResetPassword() error = %v", err)
		}
		if svc.lastBody["email"] != "ada@example.com" {
			t.Errorf("body = %v", svc.lastBody)
		}
	})

	t.Run("VerifyToken", func(t *testing.T) {
		session, err := client.VerifyToken(ctx, "good-hash", "email")
		if err != nil {
			t.Fatalf("VerifyToken() error = %v", err)
		}
		if session.User == nil || session.User.ID != "user-1" {
			t.Errorf("user = %+v", session.User)
		}

		if _, err := client.VerifyToken(ctx, "bad-hash", "email"); !errors.Is(err, shared.ErrVerifyFailed) {
			t.Errorf("expected ErrVerifyFailed for rejected hash, got %v", err)
		}
		if _, err := client.VerifyToken(ctx, "", "email"); !errors.Is(err, shared.ErrVerifyFailed) {
			t.Errorf("expected ErrVerifyFailed, got %v", err)
		}
	})

	t.Run("SignOut", func(t *testing.T) {
		if err := client.SignOut(ctx, "token"); err != nil {
			t.Fatalf("SignOut() error = %v", err)
		}
		if svc.count("POST /logout") != 1 {
			t.Errorf("expected one logout call")
		}
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		if _, err := client.UpdatePassword(ctx, "token", "new-pw"); err != nil {
			t.Fatalf("UpdatePassword() error = %v", err)
		}
	})
}

func requestWithCookies(cookies map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/en/protected", nil)
	for name, value := range cookies {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("no cookies", func(t *testing.T) {
		client := newTestClient(t, newFakeService(t))

		result, err := client.Authenticate(ctx, requestWithCookies(nil), CookieOptions{})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated() || len(result.Cookies) != 0 {
			t.Errorf("result = %+v, want empty", result)
		}
	})

	t.Run("valid access token", func(t *testing.T) {
		svc := newFakeService(t)
		client := newTestClient(t, svc)
		session, _ := client.SignIn(ctx, "ada@example.com", "hunter2")

		result, err := client.Authenticate(ctx, requestWithCookies(map[string]string{
			AccessCookie:  session.AccessToken,
			RefreshCookie: session.RefreshToken,
		}), CookieOptions{})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !result.Authenticated() {
			t.Fatal("expected authenticated result")
		}
		if len(result.Cookies) != 0 {
			t.Errorf("expected no cookie writes, got %d", len(result.Cookies))
		}
		if svc.count("POST /token") != 1 {
			t.Errorf("expected no refresh call")
		}
	})

	t.Run("expiring access token is rotated", func(t *testing.T) {
		client := newTestClient(t, newFakeService(t))
		expiring := signToken(t, "user-1", "ada@example.com", testNow.Add(30*time.Second))

		result, err := client.Authenticate(ctx, requestWithCookies(map[string]string{
			AccessCookie:  expiring,
			RefreshCookie: "refresh-1",
		}), CookieOptions{Secure: true})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !result.Authenticated() {
			t.Fatal("expected authenticated result")
		}

		refresh := cookieNamed(result.Cookies, RefreshCookie)
		if refresh == nil || refresh.Value != "refresh-1-next" || !refresh.Secure {
			t.Errorf("refresh cookie = %+v", refresh)
		}
		access := cookieNamed(result.Cookies, AccessCookie)
		if access == nil || access.Value == expiring {
			t.Errorf("access cookie = %+v", access)
		}
	})

	t.Run("rejected access token retries with refresh", func(t *testing.T) {
		client := newTestClient(t, newFakeService(t))
		stale := signToken(t, "user-1", "ada@example.com", testNow.Add(time.Hour))

		result, err := client.Authenticate(ctx, requestWithCookies(map[string]string{
			AccessCookie:  stale,
			RefreshCookie: "refresh-1",
		}), CookieOptions{})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !result.Authenticated() {
			t.Fatal("expected authenticated result after refresh")
		}
		if cookieNamed(result.Cookies, AccessCookie) == nil {
			t.Error("expected rotated access cookie")
		}
	})

	t.Run("rejected refresh clears cookies", func(t *testing.T) {
		client := newTestClient(t, newFakeService(t))
		expired := signToken(t, "user-1", "ada@example.com", testNow.Add(-time.Hour))

		result, err := client.Authenticate(ctx, requestWithCookies(map[string]string{
			AccessCookie:  expired,
			RefreshCookie: "revoked",
		}), CookieOptions{})
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Authenticated() {
			t.Fatal("expected unauthenticated result")
		}
		for _, name := range []string{AccessCookie, RefreshCookie} {
			if c := cookieNamed(result.Cookies, name); c == nil || c.MaxAge >= 0 {
				t.Errorf("cookie %s should be cleared, got %+v", name, c)
			}
		}
	})

	t.Run("unreachable service is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		client, err := NewClient(shared.IdentityConfig{URL: srv.URL}, Options{Now: func() time.Time { return testNow }})
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}

		valid := signToken(t, "user-1", "ada@example.com", testNow.Add(time.Hour))
		_, err = client.Authenticate(ctx, requestWithCookies(map[string]string{AccessCookie: valid}), CookieOptions{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestClaims(t *testing.T) {
	token := signToken(t, "user-9", "grace@example.com", testNow)

	exp, ok := ExpiresAt(token)
	if !ok || !exp.Equal(testNow) {
		t.Errorf("ExpiresAt() = %v, %v", exp, ok)
	}

	user := UserFromToken(token)
	if user == nil || user.ID != "user-9" || user.Email != "grace@example.com" {
		t.Errorf("UserFromToken() = %+v", user)
	}

	if UserFromToken("not-a-jwt") != nil {
		t.Error("expected nil user for malformed token")
	}
}
