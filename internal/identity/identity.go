package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"golang.org/x/oauth2"
)

// Client talks to the identity service.
type Client struct {
	baseURL    string
	anonKey    string
	leeway     time.Duration
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// Options configures [NewClient]. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client
	Now        func() time.Time
}

// NewClient creates a [Client] for the service described by cfg.
func NewClient(cfg shared.IdentityConfig, opts Options) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: identity url is required", shared.ErrMissingConfig)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: identity url: %v", shared.ErrInvalidConfig, err)
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 15 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	baseURL := strings.TrimRight(cfg.URL, "/")
	httpClient := &http.Client{
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Transport:     &apiKeyTransport{key: cfg.AnonKey, next: base.Transport},
	}

	return &Client{
		baseURL: baseURL,
		anonKey: cfg.AnonKey,
		leeway:  cfg.RefreshLeeway(),
		config: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		now:        now,
	}, nil
}

// apiKeyTransport adds the project key every service call must carry.
type apiKeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	if t.key == "" {
		return next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("apikey", t.key)
	return next.RoundTrip(clone)
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// SignIn exchanges email and password for a session with the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingCredentials)
	}

	token, err := c.config.PasswordCredentialsToken(c.oauthContext(ctx), email, password)
	if err != nil {
		return nil, classifyTokenError(err, shared.ErrInvalidCredentials)
	}
	return c.sessionFromToken(token), nil
}

// Refresh rotates a refresh token into a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	// An empty access token is never valid, so the source always hits the token endpoint.
	src := c.config.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, classifyTokenError(err, shared.ErrRefreshFailed)
	}
	return c.sessionFromToken(token), nil
}

// GetUser validates accessToken with the service and returns its user.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var user models.User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignUp registers a new account. redirectTo is where the confirmation email links back to.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrMissingCredentials)
	}

	body := map[string]string{"email": email, "password": password}
	path := "/signup"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	var user models.User
	if err := c.do(ctx, http.MethodPost, path, "", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// ResetPassword sends a recovery email that links back to redirectTo.
func (c *Client) ResetPassword(ctx context.Context, email, redirectTo string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrMissingArgument)
	}

	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// UpdatePassword sets a new password for the signed-in user.
func (c *Client) UpdatePassword(ctx context.Context, accessToken, password string) (*models.User, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", shared.ErrMissingArgument)
	}

	var user models.User
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": password}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyToken redeems an emailed one-time token hash for a session.
func (c *Client) VerifyToken(ctx context.Context, tokenHash, kind string) (*models.Session, error) {
	if tokenHash == "" || kind == "" {
		return nil, fmt.Errorf("%w: token_hash and type are required", shared.ErrVerifyFailed)
	}

	var resp tokenResponse
	body := map[string]string{"token_hash": tokenHash, "type": kind}
	if err := c.do(ctx, http.MethodPost, "/verify", "", body, &resp); err != nil {
		if errors.Is(err, shared.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrVerifyFailed, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: no session in response", shared.ErrVerifyFailed)
	}

	session := &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		User:         resp.User,
	}
	if session.User == nil {
		session.User = UserFromToken(resp.AccessToken)
	}
	return session, nil
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

func (c *Client) sessionFromToken(token *oauth2.Token) *models.Session {
	session := &models.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
	if exp, ok := ExpiresAt(token.AccessToken); ok {
		session.ExpiresAt = exp
	}
	session.User = UserFromToken(token.AccessToken)
	return session
}

// do performs a JSON request against the service.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"msg"`
}

func (e errorBody) String() string {
	for _, s := range []string{e.ErrorDescription, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	detail := body.String()
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, detail)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, detail)
	}
}

// classifyTokenError maps oauth2 token endpoint failures onto sentinels. Rejections wrap rejected.
func classifyTokenError(err error, rejected error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		status := retrieve.Response.StatusCode
		if status >= 400 && status < 500 {
			detail := retrieve.ErrorDescription
			if detail == "" {
				detail = retrieve.ErrorCode
			}
			return fmt.Errorf("%w: %s", rejected, detail)
		}
		return fmt.Errorf("%w: token endpoint status %d", shared.ErrServiceUnavailable, status)
	}
	return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
}
