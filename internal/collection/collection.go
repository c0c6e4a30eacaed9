package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/gorilla/websocket"
)

// TokenFunc returns the bearer token for the next request.
type TokenFunc func(ctx context.Context) (string, error)

type tokenKey struct{}

// WithToken makes requests issued with ctx authenticate as token instead of the client's [TokenFunc].
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Options configures [NewClient]. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Token      TokenFunc
	Logger     *log.Logger
	Now        func() time.Time
}

// Client reads and writes the todo table.
type Client struct {
	baseURL     string
	realtimeURL string
	table       string
	anonKey     string
	httpClient  *http.Client
	dialer      *websocket.Dialer
	token       TokenFunc
	logger      *log.Logger
	now         func() time.Time
}

var _ models.Repository[*models.Todo] = (*Client)(nil)

// NewClient creates a [Client] for the collection described by cfg.
func NewClient(cfg shared.CollectionConfig, anonKey string, opts Options) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: collection url is required", shared.ErrMissingConfig)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("%w: collection table is required", shared.ErrMissingConfig)
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		realtimeURL: cfg.RealtimeURL,
		table:       cfg.Table,
		anonKey:     anonKey,
		httpClient:  opts.HTTPClient,
		dialer:      opts.Dialer,
		token:       opts.Token,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.dialer == nil {
		c.dialer = websocket.DefaultDialer
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(io.Discard)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.token == nil {
		c.token = func(context.Context) (string, error) { return anonKey, nil }
	}
	return c, nil
}

// Table returns the remote table name.
func (c *Client) Table() string { return c.table }

// Select lists every row, oldest first. Columns default to [models.Columns].
func (c *Client) Select(ctx context.Context, columns ...string) ([]*models.Todo, error) {
	if len(columns) == 0 {
		columns = models.Columns
	}

	q := url.Values{}
	q.Set("select", strings.Join(columns, ","))
	q.Set("order", "created_at.asc")

	var rows []*models.Todo
	if err := c.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ChangesSince lists rows whose updated_at is after cursor, in update order.
// A zero cursor lists everything.
func (c *Client) ChangesSince(ctx context.Context, cursor time.Time) ([]*models.Todo, error) {
	q := url.Values{}
	q.Set("select", strings.Join(models.Columns, ","))
	q.Set("order", "updated_at.asc")
	if !cursor.IsZero() {
		q.Set("updated_at", "gt."+cursor.UTC().Format(time.RFC3339Nano))
	}

	var rows []*models.Todo
	if err := c.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Create upserts todo by id, so a retried create is harmless.
func (c *Client) Create(ctx context.Context, todo *models.Todo) error {
	if err := todo.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	body := map[string]any{
		"id":         todo.TodoID,
		"text":       todo.Text,
		"done":       todo.Done,
		"created_at": todo.Created.UTC(),
		"updated_at": todo.Updated.UTC(),
		"deleted":    todo.Deleted,
	}

	q := url.Values{}
	q.Set("on_conflict", "id")
	return c.do(ctx, http.MethodPost, q, body, nil, "resolution=merge-duplicates,return=minimal")
}

// Update patches the set fields of row id and stamps updated_at with at, the time the
// change was made. The patch only applies to a row last written before at, so a
// change pushed late never overwrites a newer write. A zero at stamps the current time
// unconditionally.
func (c *Client) Update(ctx context.Context, id string, fields models.Fields, at time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}
	if fields.Empty() {
		return nil
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	if at.IsZero() {
		at = c.now()
	} else {
		q.Set("updated_at", "lt."+at.UTC().Format(time.RFC3339Nano))
	}

	body := map[string]any{"updated_at": at.UTC()}
	if fields.Text != nil {
		body[models.FieldText] = *fields.Text
	}
	if fields.Done != nil {
		body[models.FieldDone] = *fields.Done
	}
	if fields.Deleted != nil {
		body[models.FieldDeleted] = *fields.Deleted
	}

	return c.do(ctx, http.MethodPatch, q, body, nil, "return=minimal")
}

// Delete removes row id. Deleting a missing row succeeds.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.do(ctx, http.MethodDelete, q, nil, nil, "return=minimal")
}

// do performs a request against the table endpoint.
func (c *Client) do(ctx context.Context, method string, query url.Values, body, result any, prefer ...string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + "/" + url.PathEscape(c.table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, ok := ctx.Value(tokenKey{}).(string)
	if !ok || token == "" {
		token, err = c.token(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
		}
	}

	req.Header.Set("Accept", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(prefer) > 0 {
		req.Header.Set("Prefer", strings.Join(prefer, ","))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		c.logger.Debug("collection request failed", "method", method, "status", resp.StatusCode, "err", err)
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// classify maps a response status onto the retry taxonomy.
func classify(resp *http.Response) error {
	status := resp.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(detail))
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, status, msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", shared.ErrNotAuthenticated, status, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrConflict, status, msg)
	}
}
